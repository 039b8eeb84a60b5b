package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chromara/hq/internal/clock/system"
	"github.com/chromara/hq/internal/contacts"
	"github.com/chromara/hq/internal/extract"
	collyfetcher "github.com/chromara/hq/internal/fetcher/colly"
	"github.com/chromara/hq/internal/hash/sha256"
	"github.com/chromara/hq/internal/scrape"
)

func newContactsCmd() *cobra.Command {
	var (
		domain string
		file   string
		target string
	)
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Extract possible contacts from a file or URL and print them as JSON",
		Example: `  hq contacts --domain acme.io --file team.html
  hq contacts --url https://acme.io/about`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (file == "") == (target == "") {
				return errors.New("exactly one of --file or --url is required")
			}
			if domain == "" && target != "" {
				domain = target
			}
			host, err := contacts.NormalizeDomain(domain)
			if err != nil {
				return err
			}

			var text string
			if file != "" {
				text, err = readText(file)
			} else {
				text, err = fetchText(cmd, target)
			}
			if err != nil {
				return err
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			return out.Encode(map[string]any{
				"domain":   host,
				"contacts": contacts.ExtractPossibleContacts(text, host),
			})
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "company domain to match emails against (defaults to the --url host)")
	cmd.Flags().StringVar(&file, "file", "", "read page text or HTML from a file")
	cmd.Flags().StringVar(&target, "url", "", "fetch the page at this URL")
	return cmd
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !looksLikeHTML(data) {
		return string(data), nil
	}
	doc, err := extract.FromHTML(data)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.PlainText(), nil
}

func fetchText(cmd *cobra.Command, target string) (string, error) {
	cfg, err := configFrom(cmd.Context())
	if err != nil {
		return "", err
	}
	scraper, err := scrape.New(scrape.Options{
		Probe: collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.HTTP.UserAgent,
			RespectRobots: cfg.HTTP.RespectRobots,
			Timeout:       cfg.FetchTimeout(),
		}),
		Hasher: sha256.New(),
		Clock:  system.New(),
	})
	if err != nil {
		return "", err
	}
	page, err := scraper.Scrape(cmd.Context(), target)
	if err != nil {
		return "", err
	}
	return page.Text, nil
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.Contains(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<body"))
}
