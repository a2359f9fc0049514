package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenToolSourceAccepts(t *testing.T) {
	source := `
-- @param city string
function lookup(city)
    return "weather in " .. city .. ": sunny"
end
`
	require.NoError(t, ScreenToolSource("lookup", source))
}

func TestScreenToolSourceEmpty(t *testing.T) {
	var validation *ValidationError

	err := ScreenToolSource("empty", "")
	require.ErrorAs(t, err, &validation)

	err = ScreenToolSource("blank", "   \n\t ")
	require.ErrorAs(t, err, &validation)
}

func TestScreenToolSourceSyntaxError(t *testing.T) {
	err := ScreenToolSource("broken", "function broken(\nreturn end")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Message, "syntax")
}

func TestScreenToolSourceDangerousPatterns(t *testing.T) {
	sources := map[string]string{
		"os.execute": `function run() return os.execute("ls") end`,
		"io.":        `function run() return io.read() end`,
		"require":    `function run() local s = require("socket") return s end`,
		"dofile":     `function run() return dofile("x.lua") end`,
		"case":       `function run() return OS.EXECUTE("ls") end`,
	}

	for name, source := range sources {
		err := ScreenToolSource(name, source)
		var security *SecurityError
		require.ErrorAs(t, err, &security, "source %q should trip the screen", name)
	}
}
