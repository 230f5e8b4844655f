package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/skekre98/zamt/config"
)

// CLISource loads dot-notation command-line flags:
//
//	--server.addr=:9090 --logging.level debug -modules.parallelism=4
//	  -> {server: {addr: ":9090"}, logging: {level: "debug"}, modules: {parallelism: "4"}}
//
// Both --flag=value and --flag value forms work, single-dash long flags are
// accepted, empty values and positional arguments are ignored. All values are
// strings; conversion happens when binding. It is usually the last source so
// flags override everything else.
type CLISource struct {
	// Args defaults to os.Args[1:].
	Args []string
}

func (c *CLISource) Name() string { return "cli" }

func (c *CLISource) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	args := c.Args
	if args == nil {
		args = os.Args[1:]
	}
	return parseFlags(args), nil
}

// Watch is a no-op: arguments are fixed for the process lifetime.
func (c *CLISource) Watch(ctx context.Context, ch chan<- config.Event) error {
	return nil
}

func parseFlags(raw []string) map[string]any {
	result := make(map[string]any)
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	args := normalizeArgs(raw)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name := flagName(arg)
		if name == "" {
			continue
		}
		if fs.Lookup(name) == nil {
			fs.String(name, "", fmt.Sprintf("config value for %s", name))
		}
		// skip the value of "--flag value"
		if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}

	_ = fs.Parse(args)

	fs.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if v := f.Value.String(); v != "" {
			setNestedValue(result, strings.Split(f.Name, "."), v)
		}
	})
	return result
}

// normalizeArgs turns single-dash long flags into double-dash ones for pflag.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		rest := strings.TrimPrefix(arg, "-")
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") && len(rest) > 1 && rest[0] != '=' {
			out[i] = "-" + arg
			continue
		}
		out[i] = arg
	}
	return out
}

// flagName strips dashes and an inline "=value".
func flagName(arg string) string {
	name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
	return name
}
