package cmd

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"fichecode/internal/fiche"
	"fichecode/internal/flow"
	"fichecode/internal/prompt"
)

const encodeUsage = `Usage:
  fichecode encode --in <fiche.yaml|fiche.json> [--base-url <url>] [--config <path>]

Flags:
  --in       string   Fiche file, YAML or JSON (required)
  --base-url string   Base URL of the scan page (defaults to share.base_url)
  --config   string   Path to YAML configuration file`

const decodeUsage = `Usage:
  fichecode decode (--payload <payload> | --url <link>)

Flags:
  --payload string   Encoded fiche payload
  --url     string   Shared link carrying a payload`

const compileUsage = `Usage:
  fichecode compile (--in <file> | --payload <payload> | --url <link>) [--set id=value]... [--extra <text>] [--template <text>]

Flags:
  --in       string   Fiche file, YAML or JSON
  --payload  string   Encoded fiche payload
  --url      string   Shared link carrying a payload
  --set      id=value Variable value, repeatable
  --extra    string   Free text appended to the prompt
  --template string   Prompt template using {{ id }} placeholders
  --config   string   Path to YAML configuration file`

func newFlagSet(name, usage string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
	}
	return fs
}

func encode(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("encode", encodeUsage, stderr)

	var inPath, baseURL, cfgPath string
	fs.StringVar(&inPath, "in", "", "fiche file")
	fs.StringVar(&baseURL, "base-url", "", "base URL of the scan page")
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse encode flags: %w", err)
	}
	if inPath == "" {
		return errors.New("encode command requires --in <path>")
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if baseURL == "" {
		baseURL = cfg.Share.BaseURL
	}
	if baseURL == "" {
		return errors.New("encode command requires --base-url or share.base_url in the configuration")
	}

	f, err := fiche.Load(inPath)
	if err != nil {
		return err
	}

	fl, err := newFlow(cfg)
	if err != nil {
		return err
	}
	shared, err := fl.Share(f, baseURL)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, shared.Payload)
	fmt.Fprintln(stdout, shared.Link.URL)
	if shared.Link.Warning != nil {
		fmt.Fprintf(stderr, "warning: %v\n", shared.Link.Warning)
	}
	return nil
}

func decode(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("decode", decodeUsage, stderr)

	var payload, link string
	fs.StringVar(&payload, "payload", "", "encoded fiche payload")
	fs.StringVar(&link, "url", "", "shared link")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse decode flags: %w", err)
	}

	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	fl, err := newFlow(cfg)
	if err != nil {
		return err
	}
	f, err := readFiche(fl, "", payload, link)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("render fiche: %w", err)
	}
	fmt.Fprintln(stdout, string(out))
	return nil
}

func compile(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("compile", compileUsage, stderr)

	var inPath, payload, link, extra, template, cfgPath string
	values := assignments{}
	fs.StringVar(&inPath, "in", "", "fiche file")
	fs.StringVar(&payload, "payload", "", "encoded fiche payload")
	fs.StringVar(&link, "url", "", "shared link")
	fs.Var(values, "set", "variable value as id=value")
	fs.StringVar(&extra, "extra", "", "free text appended to the prompt")
	fs.StringVar(&template, "template", "", "prompt template")
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse compile flags: %w", err)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	fl, err := newFlow(cfg)
	if err != nil {
		return err
	}
	f, err := readFiche(fl, inPath, payload, link)
	if err != nil {
		return err
	}

	var renderer prompt.Renderer = prompt.SectionRenderer{}
	if strings.TrimSpace(template) != "" {
		renderer = prompt.TemplateRenderer{Template: template}
	}

	res := fl.CompileWith(renderer, f, values, extra)
	fmt.Fprintln(stdout, res.Prompt)
	fmt.Fprintln(stdout)
	for _, action := range res.Actions {
		switch {
		case !action.Enabled:
			fmt.Fprintf(stdout, "%s: disabled\n", action.Label)
		case action.URL == "":
			fmt.Fprintf(stdout, "%s: unavailable\n", action.Label)
		default:
			fmt.Fprintf(stdout, "%s: %s\n", action.Label, action.URL)
		}
	}
	return nil
}

// readFiche loads the fiche from exactly one of a file, a payload or a link.
func readFiche(fl *flow.Flow, path, payload, link string) (fiche.Fiche, error) {
	path = strings.TrimSpace(path)
	payload = strings.TrimSpace(payload)
	link = strings.TrimSpace(link)

	given := 0
	for _, s := range []string{path, payload, link} {
		if s != "" {
			given++
		}
	}
	if given != 1 {
		return fiche.Fiche{}, errors.New("exactly one fiche source is required")
	}

	switch {
	case path != "":
		return fiche.Load(path)
	case link != "":
		return fl.FromLink(link)
	default:
		if payload == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fiche.Fiche{}, fmt.Errorf("read payload from stdin: %w", err)
			}
			payload = string(data)
		}
		return fl.FromText(payload)
	}
}

// assignments collects repeated id=value flags.
type assignments map[string]string

func (a assignments) String() string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	pairs := make([]string, 0, len(ids))
	for _, id := range ids {
		pairs = append(pairs, id+"="+a[id])
	}
	return strings.Join(pairs, ",")
}

func (a assignments) Set(value string) error {
	id, v, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(id) == "" {
		return fmt.Errorf("expected id=value, got %q", value)
	}
	a[strings.TrimSpace(id)] = v
	return nil
}
