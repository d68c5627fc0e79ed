// Package interpolation expands environment variable references inside
// configuration text before parsing.
package interpolation

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

// Pattern for ${VAR_NAME} and ${VAR_NAME:default} syntax - captures colon explicitly
var envVarWithDefaultPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:)?([^}]*)\}`)

// ExpandEnvVars expands environment variables with default values in the format:
//
// ${VAR_NAME:default_value}
//
// If the environment variable is not set, it uses the default value if provided. If no default is
// provided and the variable is missing, it returns an error.
func ExpandEnvVars(input string) (string, error) {
	if input == "" {
		return "", nil
	}

	var missingVars []error
	result := envVarWithDefaultPattern.ReplaceAllStringFunc(input, func(match string) string {
		submatches := envVarWithDefaultPattern.FindStringSubmatch(match)
		// submatches will be: [full_match, varName, colon, defaultValue]

		varName := submatches[1]
		colonIsPresent := submatches[2] == ":"
		defaultValue := submatches[3]

		value, exists := os.LookupEnv(varName)
		if exists {
			return value
		}

		// This correctly handles cases like ${VAR:} where the default is an
		// empty string.
		if colonIsPresent {
			return defaultValue
		}

		missingVars = append(
			missingVars,
			fmt.Errorf("environment variable not defined: %s", varName),
		)
		return match
	})

	return result, errors.Join(missingVars...)
}
