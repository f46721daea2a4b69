package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dmitrijs2005/picdrop/internal/client/models"
	"github.com/dmitrijs2005/picdrop/internal/client/resources"
	"github.com/dmitrijs2005/picdrop/internal/client/services"
	"github.com/dmitrijs2005/picdrop/internal/client/view"
)

var errNoListing = errors.New("nothing listed yet, run sent or received first")

// Sent lists sent images, waiting briefly for thumbnails.
func (a *App) Sent(ctx context.Context, args []string) error {
	return a.showListing(ctx, view.TabSent, args)
}

// Received lists received images grouped by sender.
func (a *App) Received(ctx context.Context, args []string) error {
	return a.showListing(ctx, view.TabReceived, args)
}

func (a *App) showListing(ctx context.Context, tab view.Tab, args []string) error {
	var err error
	if len(args) > 0 && args[0] == "refresh" {
		err = a.controller.Refresh(ctx, tab)
	} else {
		err = a.controller.Open(ctx, tab)
	}
	if err != nil {
		return err
	}

	l := a.libraryService.Current()
	if l == nil {
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, thumbnailWait)
	defer cancel()
	_ = l.Wait(wctx)

	printListing(l, a.libraryService.Selection(), time.Now())
	return nil
}

func printListing(l *services.Listing, selection map[string]string, now time.Time) {
	if l.Empty() {
		printlnFn("No images yet.")
		return
	}

	lastSender := ""
	for i, e := range l.Entries {
		if l.Kind == services.KindReceived && e.Item.Counterpart != lastSender {
			lastSender = e.Item.Counterpart
			printlnFn("From " + lastSender + ":")
		}
		printlnFn(formatEntry(i+1, l.Kind, e, selection, now))
	}
}

func formatEntry(n int, kind services.ListingKind, e services.Entry, selection map[string]string, now time.Time) string {
	mark := ""
	if kind == services.KindReceived {
		mark = "[ ] "
		if _, ok := selection[e.Item.FetchPath]; ok {
			mark = "[x] "
		}
	}

	who := ""
	if kind == services.KindSent {
		who = " to " + e.Item.Counterpart
	}

	expiry := "expires " + formatTime(e.Item.ExpiresAt)
	if e.Item.Expired(now) {
		expiry = "expired"
	}

	return fmt.Sprintf("%3d. %s%s%s, %s %s", n, mark, e.Item.OriginalName, who, expiry, thumbState(e.Thumb))
}

func thumbState(s *resources.Slot) string {
	switch s.State() {
	case resources.SlotReady:
		h, _ := s.Handle()
		return fmt.Sprintf("[%d bytes]", h.Size)
	case resources.SlotUnavailable:
		return "[image unavailable]"
	case resources.SlotLoading:
		return "[loading…]"
	default:
		return ""
	}
}

// entryAt resolves a 1-based listing index.
func (a *App) entryAt(arg string) (models.MediaItem, error) {
	l := a.libraryService.Current()
	if l == nil || l.Empty() {
		return models.MediaItem{}, errNoListing
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(l.Entries) {
		return models.MediaItem{}, errUsage
	}
	return l.Entries[n-1].Item, nil
}

// Open fetches the full image of entry n and reports what it is.
func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	item, err := a.entryAt(args[0])
	if err != nil {
		return err
	}

	data, err := a.libraryService.Open(ctx, item)
	if err != nil {
		return err
	}
	printlnFn(describeImage(item.OriginalName, data))
	return nil
}

// describeImage stands in for rendering: it reports format and size.
func describeImage(name string, data []byte) string {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Sprintf("%s: %d bytes", name, len(data))
	}
	return fmt.Sprintf("%s: %dx%d %s, %d bytes", name, cfg.Width, cfg.Height, format, len(data))
}

// Download saves entry n through the configured sink.
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	item, err := a.entryAt(args[0])
	if err != nil {
		return err
	}

	loc, err := a.libraryService.Download(ctx, item)
	if err != nil {
		return err
	}
	printlnFn("Saved", item.OriginalName, "to", loc)
	return nil
}

// Mark adds received entries to the batch selection.
func (a *App) Mark(ctx context.Context, args []string) error {
	return a.toggle(args, true)
}

func (a *App) Unmark(ctx context.Context, args []string) error {
	return a.toggle(args, false)
}

func (a *App) toggle(args []string, on bool) error {
	if len(args) == 0 {
		return errUsage
	}
	for _, arg := range args {
		item, err := a.entryAt(arg)
		if err != nil {
			return err
		}
		if err := a.libraryService.Toggle(item, on); err != nil {
			return err
		}
	}
	printlnFn(fmt.Sprintf("%d selected", len(a.libraryService.Selection())))
	return nil
}

// DownloadSelected saves every marked image and reports each outcome.
func (a *App) DownloadSelected(ctx context.Context, args []string) error {
	res, err := a.libraryService.DownloadSelected(ctx)
	for _, s := range res.Saved {
		printlnFn("Saved", s.Name, "to", s.Location)
	}
	for _, f := range res.Failed {
		printlnFn("Failed", f.Name+":", services.UserMessage(f.Err))
	}
	if len(res.Failed) > 0 {
		printlnFn(fmt.Sprintf("%d of %d downloads failed", len(res.Failed), len(res.Failed)+len(res.Saved)))
		return nil
	}
	return err
}

// Link prints the absolute address of an image. Opening it still needs the
// bearer credential.
func (a *App) Link(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	item, err := a.entryAt(args[0])
	if err != nil {
		return err
	}
	link, err := a.libraryService.Link(item)
	if err != nil {
		return err
	}
	printlnFn(link)
	return nil
}
