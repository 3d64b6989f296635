package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/entrhq/formless/pkg/dom/htmldoc"
	"github.com/entrhq/formless/pkg/field"
	"github.com/entrhq/formless/pkg/matching"
)

// runScan lists the fields of a saved page and, with -match, previews the
// values the matching service would fill in.
func runScan(ctx context.Context, cfg *CLIConfig, svc service, out io.Writer) error {
	f, err := os.Open(cfg.ScanFile)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cfg.ScanFile, err)
	}
	defer f.Close()

	page, err := htmldoc.Parse(cfg.PageURL, f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", cfg.ScanFile, err)
	}

	resolver, err := field.NewResolver(page)
	if err != nil {
		return err
	}
	fields, err := resolver.Discover()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (%s adapter, %d fields)\n\n", cfg.PageURL, resolver.Adapter().Tag(), len(fields))
	if err := printFields(out, fields); err != nil {
		return err
	}
	if !cfg.Match || len(fields) == 0 {
		return nil
	}

	labels := uniqueLabels(fields)
	req := matching.Request{ParsedFields: labels, Context: cfg.Context}
	if cfg.Prompt != "" {
		req.UserPrompts = make(map[string]string, len(labels))
		for _, l := range labels {
			req.UserPrompts[l] = cfg.Prompt
		}
	}

	resp, err := svc.matcher.Match(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	matches := formatMatches(labels, resp)
	if matches == "" {
		fmt.Fprintln(out, "No matching memories found.")
		return nil
	}
	fmt.Fprint(out, matches)

	if cfg.Copy {
		if err := clipboard.WriteAll(matches); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Fprintln(out, "\nCopied to clipboard.")
	}
	return nil
}

func printFields(out io.Writer, fields []field.Field) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tKIND")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.ID, f.Label, f.Kind)
	}
	return tw.Flush()
}

func uniqueLabels(fields []field.Field) []string {
	seen := make(map[string]bool, len(fields))
	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f.Label] {
			seen[f.Label] = true
			labels = append(labels, f.Label)
		}
	}
	return labels
}

// formatMatches renders "label: value" lines in label order, skipping
// labels without a value.
func formatMatches(labels []string, resp matching.Response) string {
	var sb strings.Builder
	for _, l := range labels {
		if v := resp.Value(l); v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", l, v)
		}
	}
	return sb.String()
}
