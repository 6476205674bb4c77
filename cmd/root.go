package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

const usage = `fichecode packs prompt fiches into shareable payloads and compiles them into prompts.

Usage:
  fichecode <command> [flags]

Commands:
  serve    Start the HTTP server
  encode   Encode a fiche file into a payload and a shareable link
  decode   Decode a payload or shared link back into a fiche
  compile  Compile a fiche into a prompt with assistant links

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return printUsage(stdout)
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:], stderr)
	case "encode":
		return encode(args[1:], stdout, stderr)
	case "decode":
		return decode(args[1:], stdout, stderr)
	case "compile":
		return compile(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, strings.TrimSpace(usage))
	return nil
}
