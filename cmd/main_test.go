package main

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/pkg/errors"
)

func parseRunFlags(t *testing.T, args ...string) (runFlags, *pflag.FlagSet) {
	t.Helper()

	var f runFlags
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	f.bind(flags)
	require.NoError(t, flags.Parse(args))
	return f, flags
}

func TestRunFlags_Defaults(t *testing.T) {
	f, flags := parseRunFlags(t, "--subject", "u1")

	opts, err := f.options(flags)
	require.NoError(t, err)

	assert.Equal(t, "u1", f.subject)
	assert.False(t, opts.IncludeDebate)
	assert.False(t, opts.IncludeProposal)
	assert.Nil(t, opts.CurrentPrice)
	assert.Nil(t, opts.VIXLevel)
	assert.Nil(t, opts.AccountSize)
	assert.Nil(t, opts.CurrentPnL)
}

func TestRunFlags_AllSet(t *testing.T) {
	f, flags := parseRunFlags(t,
		"--subject", "u1", "--debate", "--proposal",
		"--price", "5012.5", "--vix", "0",
		"--account-size", "100000", "--pnl", "-1200.50",
	)

	opts, err := f.options(flags)
	require.NoError(t, err)

	assert.True(t, opts.IncludeDebate)
	assert.True(t, opts.IncludeProposal)
	require.NotNil(t, opts.CurrentPrice)
	assert.Equal(t, 5012.5, *opts.CurrentPrice)
	// an explicit zero is still a value
	require.NotNil(t, opts.VIXLevel)
	assert.Equal(t, 0.0, *opts.VIXLevel)
	require.NotNil(t, opts.AccountSize)
	assert.Equal(t, "100000", opts.AccountSize.String())
	require.NotNil(t, opts.CurrentPnL)
	assert.Equal(t, "-1200.5", opts.CurrentPnL.String())
}

func TestRunFlags_InvalidDecimal(t *testing.T) {
	f, flags := parseRunFlags(t, "--subject", "u1", "--pnl", "lots")

	_, err := f.options(flags)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestUserFacing(t *testing.T) {
	err := userFacing(errors.NewPipelineError("research", "Research failed", errors.ErrParse))
	assert.Contains(t, err.Error(), "Research failed (stage research)")
	assert.True(t, errors.Is(err, errors.ErrParse))

	plain := errors.New("boom")
	assert.Equal(t, plain, userFacing(plain))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"calls": 11}))
	assert.Equal(t, "{\n  \"calls\": 11\n}\n", buf.String())
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "analysts", "serve", "version"}, names)
}
