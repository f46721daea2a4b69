package cli

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Stage reads an image from disk and makes it the file to send.
func (a *App) Stage(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if err := a.sendService.StageFile(ctx, strings.Join(args, " ")); err != nil {
		return err
	}

	st, _ := a.sendService.Staged()
	printlnFn(fmt.Sprintf("Staged %s (%s, %d bytes)", st.Name, st.ContentType, st.Size))
	if _, ok := a.selector.Current(); !ok {
		printlnFn("Now choose a recipient with select <username>.")
	}
	return nil
}

func (a *App) Unstage(ctx context.Context, args []string) error {
	a.sendService.Unstage()
	return nil
}

// Send uploads the staged image to the selected recipient.
func (a *App) Send(ctx context.Context, args []string) error {
	st, _ := a.sendService.Staged()
	printlnFn("Uploading…")

	rc, err := a.sendService.Send(ctx)
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("Sent %s (%d bytes) to %s, expires %s", st.Name, st.Size, rc.Receiver, formatTime(rc.ExpiresAt)))
	if rc.ShareLink != "" {
		printlnFn("Share link:", rc.ShareLink)
	}
	a.printContacts()
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
