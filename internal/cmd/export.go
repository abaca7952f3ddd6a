package cmd

import (
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/markup"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in; run chatfun login first")

func init() {
	exportCmd.Flags().Bool("html", false, "Write sanitized HTML instead of plain text")
	exportCmd.Flags().IntP("limit", "n", 0, "Number of messages (defaults to the configured page size)")
	exportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the latest global chat messages",
	Example: heredoc.Doc(`
		# Plain text to the terminal
		chatfun export

		# The last 200 messages as HTML
		chatfun export --html -n 200 -o chat.html
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setupApp(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		if !a.Session.Authenticated() {
			return errNotSignedIn
		}
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = a.Config().MessageLimit
		}
		msgs, err := a.API.ListMessages(cmd.Context(), chat.Global(), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		if asHTML, _ := cmd.Flags().GetBool("html"); asHTML {
			return writeHTML(out, a.Markup, msgs, time.Local)
		}
		return writeText(out, msgs, time.Local)
	},
}

func writeText(w io.Writer, msgs []chat.Message, loc *time.Location) error {
	for _, m := range msgs {
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n",
			m.Timestamp.In(loc).Format(time.DateTime),
			markup.StripControl(m.Author.Name),
			markup.StripControl(m.Content),
		); err != nil {
			return err
		}
	}
	return nil
}

func writeHTML(w io.Writer, r *markup.Renderer, msgs []chat.Message, loc *time.Location) error {
	if _, err := io.WriteString(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>ChatFun export</title></head><body>\n"); err != nil {
		return err
	}
	for _, m := range msgs {
		if _, err := fmt.Fprintf(w, "<div class=\"message\"><time datetime=\"%s\">%s</time> <strong>%s</strong> <span>%s</span></div>\n",
			m.Timestamp.UTC().Format(time.RFC3339),
			html.EscapeString(m.Timestamp.In(loc).Format(time.DateTime)),
			html.EscapeString(m.Author.Name),
			r.RenderSafeHTML(m.Content),
		); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</body></html>\n")
	return err
}
