package cmd

import (
	"fmt"
	"strconv"

	"github.com/chasedut/chatfun/internal/settings"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	settingsCmd.Flags().Bool("sync", false, "Merge the server copy before printing")
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Print the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setupApp(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		if sync, _ := cmd.Flags().GetBool("sync"); sync {
			if !a.Session.Authenticated() {
				return fmt.Errorf("sync requires a session; run chatfun login first")
			}
			if err := a.SyncSettings(cmd.Context()); err != nil {
				return err
			}
		}

		s := a.Settings()
		def := settings.Defaults()
		rows := []struct {
			key      string
			val, def string
		}{
			{settings.KeyAutoScroll, strconv.FormatBool(s.AutoScroll), strconv.FormatBool(def.AutoScroll)},
			{settings.KeyShowTimestamps, strconv.FormatBool(s.ShowTimestamps), strconv.FormatBool(def.ShowTimestamps)},
			{settings.KeyCtrlEnterToSend, strconv.FormatBool(s.CtrlEnterToSend), strconv.FormatBool(def.CtrlEnterToSend)},
			{settings.KeyAllowDirectMessages, strconv.FormatBool(s.AllowDirectMessages), strconv.FormatBool(def.AllowDirectMessages)},
			{settings.KeyContentFilter, strconv.FormatBool(s.ContentFilter), strconv.FormatBool(def.ContentFilter)},
			{settings.KeyHideProfilePictures, strconv.FormatBool(s.HideProfilePictures), strconv.FormatBool(def.HideProfilePictures)},
			{settings.KeyTheme, s.Theme, def.Theme},
			{settings.KeyCompactMode, strconv.FormatBool(s.CompactMode), strconv.FormatBool(def.CompactMode)},
		}

		keyStyle := color.New(color.FgCyan)
		changed := color.New(color.FgYellow, color.Bold)
		out := cmd.OutOrStdout()
		for _, r := range rows {
			val := r.val
			if r.val != r.def {
				val = changed.Sprint(r.val)
			}
			fmt.Fprintf(out, "%-22s %s\n", keyStyle.Sprint(r.key), val)
		}
		return nil
	},
}
