package yalocales

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
)

// flatten writes every leaf of tree into out under its composite key.
func flatten(prefix string, tree map[string]any, out map[string]string) error {
	for key, node := range tree {
		composite := key
		if prefix != "" {
			composite = prefix + "." + key
		}

		switch value := node.(type) {
		case map[string]any:
			if err := flatten(composite, value, out); err != nil {
				return err
			}
		case string:
			out[composite] = value
		case int, int64, float64, bool:
			out[composite] = fmt.Sprint(value)
		default:
			return fmt.Errorf("%w: %s is %T", ErrUnsupportedLocale, composite, node)
		}
	}

	return nil
}

func formatValueWithArgs(value string, args map[string]string) (string, yaerrors.Error) {
	var builder strings.Builder

	rest := value

	for {
		start := strings.IndexByte(rest, '{')
		if start == -1 {
			builder.WriteString(rest)

			break
		}

		end := strings.IndexByte(rest[start:], '}')
		if end == -1 {
			builder.WriteString(rest)

			break
		}

		name := rest[start+1 : start+end]

		arg, ok := args[name]
		if !ok {
			return "", yaerrors.FromError(
				http.StatusInternalServerError,
				ErrMissingPlaceholder,
				"failed to format placeholder "+name,
			)
		}

		builder.WriteString(rest[:start])
		builder.WriteString(arg)

		rest = rest[start+end+1:]
	}

	return builder.String(), nil
}
