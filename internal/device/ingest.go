package device

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-ini/ini"
)

// implicitSection is prepended to every file; device files carry bare
// key/value lines with no section header of their own.
const implicitSection = "device"

// rawValueMark delimits the placeholder for a value held back from the
// INI parser; see protectQuotedValues.
const rawValueMark = "\x00"

var loadOptions = ini.LoadOptions{
	Insensitive:                true,
	IgnoreContinuation:         true,
	IgnoreInlineComment:        true,
	PreserveSurroundedQuote:    true,
	AllowPythonMultilineValues: true,
}

// Parse builds a Device from the contents of one device file.
//
// Keys are case-insensitive and may use "=" or ":" as the delimiter.
// Lines starting with "#" or ";" are comments. Values are kept verbatim.
// An indented line continues the previous value; the lines are joined
// with "\n" after trimming.
func Parse(data []byte) (*Device, error) {
	masked, raw := protectQuotedValues(data)

	var buf bytes.Buffer
	buf.Grow(len(masked) + len(implicitSection) + 3)
	buf.WriteString("[" + implicitSection + "]\n")
	buf.Write(masked)

	cfg, err := ini.LoadSources(loadOptions, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}

	sec, err := cfg.GetSection(implicitSection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}

	values := make(map[string]string, len(requiredKeys))
	for _, key := range requiredKeys {
		if !sec.HasKey(key) {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
		}
		values[key] = joinContinuation(raw.Replace(sec.Key(key).String()))
	}
	if strings.TrimSpace(values[KeyHostname]) == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrMissingKey, KeyHostname)
	}

	return &Device{
		Hostname:          values[KeyHostname],
		HardResetCommand:  values[KeyHardResetCommand],
		PowerOffCommand:   values[KeyPowerOffCommand],
		ConnectionCommand: values[KeyConnectionCommand],
	}, nil
}

// protectQuotedValues swaps every value starting with a backtick or """
// for a placeholder. The INI parser treats those as quoted strings, strips
// the quotes and reads on to the closing quote, which would change or
// swallow shell commands. The returned replacer restores the original text.
func protectQuotedValues(data []byte) ([]byte, *strings.Replacer) {
	lines := strings.SplitAfter(string(data), "\n")
	var pairs []string
	inValue := false

	for i, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		if body == "" {
			inValue = false
			continue
		}
		if inValue && (body[0] == ' ' || body[0] == '\t' || body[0] == '\f') {
			continue
		}

		trimmed := strings.TrimLeftFunc(body, unicode.IsSpace)
		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == ';' || trimmed[0] == '[' {
			inValue = false
			continue
		}
		inValue = true

		if trimmed[0] == '`' || trimmed[0] == '"' {
			continue // quoted key name, left to the parser
		}
		delim := strings.IndexAny(body, "=:")
		if delim < 0 {
			continue
		}
		value := strings.TrimSpace(body[delim+1:])
		if !strings.HasPrefix(value, "`") && !strings.HasPrefix(value, `"""`) {
			continue
		}

		placeholder := rawValueMark + "raw" + strconv.Itoa(len(pairs)/2) + rawValueMark
		pairs = append(pairs, placeholder, value)
		lines[i] = body[:delim+1] + " " + placeholder + line[len(body):]
	}

	return []byte(strings.Join(lines, "")), strings.NewReplacer(pairs...)
}

// joinContinuation trims each continuation line and drops trailing
// empty ones.
func joinContinuation(value string) string {
	if !strings.Contains(value, "\n") {
		return value
	}
	parts := strings.Split(value, "\n")
	for i := 1; i < len(parts); i++ {
		parts[i] = strings.TrimSpace(parts[i])
	}
	for len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "\n")
}

// LoadFile reads and parses the device file at path.
// Hidden files are rejected with ErrHiddenFile before anything is read.
func LoadFile(path string) (*Device, error) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return nil, fmt.Errorf("%w: %s", ErrHiddenFile, path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("reading device file: %w", err)
	}

	dev, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dev.Source = path
	return dev, nil
}
