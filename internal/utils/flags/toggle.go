// Package flags provides yes/no switch flags for Cobra commands.
package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	switchTrueCanonicalValueConstant      = "true"
	switchFalseCanonicalValueConstant     = "false"
	switchParseErrorTemplateConstant      = "invalid switch value %q (use yes or no)"
	switchTruePlaceholderConstant         = "<YES|no>"
	switchFalsePlaceholderConstant        = "<yes|NO>"
	switchValueTypeConstant               = "bool"
	switchUsageTemplateConstant           = "`%s` %s"
	switchPlaceholderOnlyTemplateConstant = "`%s`"
)

var switchLiterals = map[string]bool{
	"true":  true,
	"yes":   true,
	"on":    true,
	"1":     true,
	"y":     true,
	"false": false,
	"no":    false,
	"off":   false,
	"0":     false,
	"n":     false,
}

// AddSwitchFlag registers a boolean flag that accepts yes/no, on/off, true/false, or 1/0.
// A bare flag ("--preserve-local") switches the value on.
func AddSwitchFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil || len(name) == 0 {
		return
	}
	*target = defaultValue
	flagSet.Var(&switchValue{target: target}, name, formatSwitchUsage(usage, defaultValue))
	flagSet.Lookup(name).NoOptDefVal = switchTrueCanonicalValueConstant
}

// ParseSwitch converts a yes/no style literal into a boolean.
func ParseSwitch(rawValue string) (bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalized) == 0 {
		return true, nil
	}
	parsed, known := switchLiterals[normalized]
	if !known {
		return false, fmt.Errorf(switchParseErrorTemplateConstant, rawValue)
	}
	return parsed, nil
}

func formatSwitchUsage(description string, defaultValue bool) string {
	placeholder := switchFalsePlaceholderConstant
	if defaultValue {
		placeholder = switchTruePlaceholderConstant
	}
	trimmed := strings.TrimSpace(description)
	if len(trimmed) == 0 {
		return fmt.Sprintf(switchPlaceholderOnlyTemplateConstant, placeholder)
	}
	return fmt.Sprintf(switchUsageTemplateConstant, placeholder, trimmed)
}

type switchValue struct {
	target *bool
}

func (value *switchValue) Set(rawValue string) error {
	parsed, parseError := ParseSwitch(rawValue)
	if parseError != nil {
		return parseError
	}
	*value.target = parsed
	return nil
}

func (value *switchValue) String() string {
	if value == nil || value.target == nil || !*value.target {
		return switchFalseCanonicalValueConstant
	}
	return switchTrueCanonicalValueConstant
}

func (value *switchValue) Type() string {
	return switchValueTypeConstant
}
