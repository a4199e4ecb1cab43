// Lingua is a terminal companion for the conversion library. It reads a
// canonical request as JSON, converts it to a provider's wire format, and
// reports whether the conversion was lossless — as a one-shot command or an
// interactive inspector.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "convert":
			convertCmd := flag.NewFlagSet("convert", flag.ExitOnError)
			convertCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: lingua convert [flags]\n\nConvert a canonical request to a provider wire format.\n\nFlags:\n")
				convertCmd.PrintDefaults()
			}
			in := convertCmd.String("in", "-", "canonical request JSON file (\"-\" for stdin)")
			target := convertCmd.String("provider", "openai", "target provider (openai, anthropic, gemini, openrouter, mistral, groq)")
			model := convertCmd.String("model", "model", "model name to place in the wire request")
			shadow := convertCmd.Bool("shadow", false, "permit best-effort output alongside recorded errors")
			roundtrip := convertCmd.Bool("roundtrip", false, "convert the wire request back and diff it against the original")
			_ = convertCmd.Parse(os.Args[2:])

			if err := runConvert(*in, *target, *model, *shadow, *roundtrip); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}

			return
		case "capabilities":
			capsCmd := flag.NewFlagSet("capabilities", flag.ExitOnError)
			capsCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: lingua capabilities [flags]\n\nShow what content each provider accepts.\n\nFlags:\n")
				capsCmd.PrintDefaults()
			}
			name := capsCmd.String("provider", "", "show a single provider (default: all)")
			_ = capsCmd.Parse(os.Args[2:])

			if err := runCapabilities(*name); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}

			return
		case "inspect":
			inspectCmd := flag.NewFlagSet("inspect", flag.ExitOnError)
			inspectCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: lingua inspect [flags]\n\nInteractively convert a canonical request and browse the wire output.\n\nFlags:\n")
				inspectCmd.PrintDefaults()
			}
			in := inspectCmd.String("in", "", "canonical request JSON file")
			env := inspectCmd.String("env", ".env", "path to .env file (ignored if missing)")
			_ = inspectCmd.Parse(os.Args[2:])

			if err := loadDotEnv(*env); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}

			if err := runInspect(*in); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}

			return
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lingua <command> [flags]\n\nCommands:\n  convert       Convert a canonical request to a provider wire format\n  capabilities  Show what content each provider accepts\n  inspect       Interactively convert a request and browse the wire output\n")
	}
	flag.Parse()
	flag.Usage()
	os.Exit(2)
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}
