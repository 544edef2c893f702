package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName               = "bool"
	booleanFlagTrueLiteral            = "true"
	booleanFlagFalseLiteral           = "false"
	booleanFlagAcceptedValuesListing  = "true, false, yes, no, on, off, 1, 0"
	booleanFlagInvalidValueErrorLabel = "invalid boolean value"
	negatedFlagPrefix                 = "no-"
)

var booleanFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// toggleFlag is a boolean setting that the command line may leave untouched.
// Only an explicitly set toggle overrides the configuration files.
type toggleFlag struct {
	value bool
	set   bool
}

// apply copies the flag value into target when the flag was given.
func (flag toggleFlag) apply(target *bool) {
	if flag.set {
		*target = flag.value
	}
}

type booleanFlagValue struct {
	toggle   *toggleFlag
	flagKey  string
	inverted bool
}

func (value *booleanFlagValue) Set(input string) error {
	if value == nil || value.toggle == nil {
		return fmt.Errorf("%s %q for flag %q", booleanFlagInvalidValueErrorLabel, input, value.flagKey)
	}
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = booleanFlagTrueLiteral
	}
	parsed, ok := booleanFlagLiterals[normalized]
	if !ok {
		return fmt.Errorf("%s %q for --%s; accepted values: %s", booleanFlagInvalidValueErrorLabel, input, value.flagKey, booleanFlagAcceptedValuesListing)
	}
	if value.inverted {
		parsed = !parsed
	}
	value.toggle.value = parsed
	value.toggle.set = true
	return nil
}

func (value *booleanFlagValue) String() string {
	if value == nil || value.toggle == nil {
		return booleanFlagTrueLiteral
	}
	current := value.toggle.value
	if value.inverted {
		current = !current
	}
	return strconv.FormatBool(current)
}

func (value *booleanFlagValue) Type() string {
	return booleanFlagTypeName
}

// registerToggleFlag registers --name and --no-name, both writing to toggle.
func registerToggleFlag(flagSet *pflag.FlagSet, toggle *toggleFlag, name string, enableUsage string, disableUsage string) {
	if flagSet == nil || toggle == nil {
		return
	}
	register := func(flagName string, inverted bool, usage string) {
		flagSet.Var(&booleanFlagValue{toggle: toggle, flagKey: flagName, inverted: inverted}, flagName, usage)
		if lookup := flagSet.Lookup(flagName); lookup != nil {
			lookup.DefValue = booleanFlagFalseLiteral
			lookup.NoOptDefVal = booleanFlagTrueLiteral
		}
	}
	register(name, false, enableUsage)
	register(negatedFlagPrefix+name, true, disableUsage)
}

// normalizeBooleanFlagArguments rewrites "--flag value" into "--flag=value" for
// boolean flags followed by a boolean literal.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	if command == nil || len(arguments) == 0 {
		return arguments
	}
	booleanFlags := map[string]struct{}{}
	collectBooleanFlagNames(command, booleanFlags)
	if len(booleanFlags) == 0 {
		return arguments
	}
	normalized := make([]string, 0, len(arguments))
	index := 0
	for index < len(arguments) {
		currentArgument := arguments[index]
		if currentArgument == "--" {
			normalized = append(normalized, arguments[index:]...)
			break
		}
		if strings.HasPrefix(currentArgument, "--") && !strings.Contains(currentArgument, "=") {
			flagName := strings.TrimPrefix(currentArgument, "--")
			if _, exists := booleanFlags[flagName]; exists && index+1 < len(arguments) {
				nextArgument := arguments[index+1]
				if !strings.HasPrefix(nextArgument, "-") {
					literal := strings.ToLower(strings.TrimSpace(nextArgument))
					if _, valid := booleanFlagLiterals[literal]; valid {
						normalized = append(normalized, fmt.Sprintf("--%s=%s", flagName, nextArgument))
						index += 2
						continue
					}
				}
			}
		}
		normalized = append(normalized, currentArgument)
		index++
	}
	return normalized
}

func collectBooleanFlagNames(command *cobra.Command, target map[string]struct{}) {
	if command == nil || target == nil {
		return
	}
	visit := func(flagSet *pflag.FlagSet) {
		if flagSet == nil {
			return
		}
		flagSet.VisitAll(func(flag *pflag.Flag) {
			if flag == nil || flag.Value == nil {
				return
			}
			if flag.Value.Type() == booleanFlagTypeName {
				target[flag.Name] = struct{}{}
			}
		})
	}
	visit(command.PersistentFlags())
	visit(command.Flags())
	for _, child := range command.Commands() {
		collectBooleanFlagNames(child, target)
	}
}
