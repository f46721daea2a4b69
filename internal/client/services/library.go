package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/picdrop/internal/client/client"
	"github.com/dmitrijs2005/picdrop/internal/client/models"
	"github.com/dmitrijs2005/picdrop/internal/client/resources"
	"github.com/dmitrijs2005/picdrop/internal/client/sink"
	"github.com/dmitrijs2005/picdrop/internal/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultOpenTTL is how long an opened image stays in memory.
const DefaultOpenTTL = 60 * time.Second

// ListingKind tells sent and received listings apart.
type ListingKind int

const (
	KindSent ListingKind = iota
	KindReceived
)

func (k ListingKind) String() string {
	if k == KindReceived {
		return "received"
	}
	return "sent"
}

// Entry is one listed image with its thumbnail slot.
type Entry struct {
	Item  models.MediaItem
	Thumb *resources.Slot
}

// Listing is a loaded sent or received list. Entries are final when the
// listing is returned; thumbnails keep loading until Wait returns.
type Listing struct {
	Kind    ListingKind
	Entries []Entry
	// Senders holds the received groups' senders in server order.
	Senders []string

	done chan struct{}
}

// Wait blocks until every thumbnail load has settled.
func (l *Listing) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Listing) Empty() bool { return len(l.Entries) == 0 }

// SavedItem is one successful download.
type SavedItem struct {
	Name     string
	Location string
}

// FailedItem is one failed download of a batch.
type FailedItem struct {
	Name string
	Err  error
}

// BatchResult is the per-item outcome of DownloadSelected.
type BatchResult struct {
	Saved  []SavedItem
	Failed []FailedItem
}

// LibraryOptions tunes a LibraryService.
type LibraryOptions struct {
	OpenTTL time.Duration
	// ThumbnailConcurrency caps parallel thumbnail fetches. Zero or less
	// means no cap.
	ThumbnailConcurrency int
}

// LibraryService browses sent and received images and downloads them.
type LibraryService interface {
	LoadSent(ctx context.Context) (*Listing, error)
	LoadReceived(ctx context.Context) (*Listing, error)
	Current() *Listing

	Open(ctx context.Context, item models.MediaItem) ([]byte, error)
	Download(ctx context.Context, item models.MediaItem) (string, error)
	Link(item models.MediaItem) (string, error)

	Toggle(item models.MediaItem, on bool) error
	Selection() map[string]string
	DownloadSelected(ctx context.Context) (BatchResult, error)
}

type libraryService struct {
	client client.Client
	loader *resources.Loader
	sink   sink.Sink
	opts   LibraryOptions
	log    logging.Logger

	viewer *resources.Slot

	mu        sync.Mutex
	current   *Listing
	selection map[string]models.MediaItem
}

// NewLibraryService returns a LibraryService fetching through loader and
// saving through s.
func NewLibraryService(c client.Client, loader *resources.Loader, s sink.Sink, opts LibraryOptions, log logging.Logger) LibraryService {
	if log == nil {
		log = logging.Discard()
	}
	if opts.OpenTTL <= 0 {
		opts.OpenTTL = DefaultOpenTTL
	}
	return &libraryService{
		client:    c,
		loader:    loader,
		sink:      s,
		opts:      opts,
		log:       log,
		viewer:    resources.NewSlot("viewer"),
		selection: make(map[string]models.MediaItem),
	}
}

func (s *libraryService) Current() *Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// reset releases every handle and forgets the previous listing and its
// selection.
func (s *libraryService) reset(ctx context.Context) {
	n := s.loader.ReleaseAll()

	s.mu.Lock()
	s.current = nil
	s.selection = make(map[string]models.MediaItem)
	s.mu.Unlock()

	s.log.Debug(ctx, "listing reset", "released", n)
}

func (s *libraryService) LoadSent(ctx context.Context) (*Listing, error) {
	s.reset(ctx)

	items, err := s.client.ListSent(ctx)
	if err != nil {
		return nil, err
	}

	l := &Listing{Kind: KindSent, Entries: make([]Entry, 0, len(items))}
	for _, it := range items {
		l.Entries = append(l.Entries, Entry{Item: it, Thumb: resources.NewSlot("thumb:" + it.RemoteID)})
	}
	return s.publish(ctx, l), nil
}

// LoadReceived replaces the current listing with the received images,
// keeping the server's sender order.
func (s *libraryService) LoadReceived(ctx context.Context) (*Listing, error) {
	s.reset(ctx)

	groups, err := s.client.ListReceived(ctx)
	if err != nil {
		return nil, err
	}

	l := &Listing{Kind: KindReceived}
	for _, g := range groups {
		l.Senders = append(l.Senders, g.Sender)
		for _, it := range g.Items {
			l.Entries = append(l.Entries, Entry{Item: it, Thumb: resources.NewSlot("thumb:" + it.RemoteID)})
		}
	}
	return s.publish(ctx, l), nil
}

// publish makes l current and starts its thumbnail loads. Failed
// thumbnails only mark their slot.
func (s *libraryService) publish(ctx context.Context, l *Listing) *Listing {
	l.done = make(chan struct{})

	s.mu.Lock()
	s.current = l
	s.mu.Unlock()

	limit := s.opts.ThumbnailConcurrency
	if limit <= 0 {
		limit = -1
	}

	go func() {
		defer close(l.done)

		var g errgroup.Group
		g.SetLimit(limit)
		for _, e := range l.Entries {
			e := e
			g.Go(func() error {
				if _, err := s.loader.Load(ctx, e.Thumb, e.Item.FetchPath); err != nil {
					s.log.Debug(ctx, "thumbnail unavailable", "item", e.Item.RemoteID, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	s.log.Info(ctx, "listing loaded", "kind", l.Kind.String(), "items", len(l.Entries))
	return l
}

// Open fetches the full image into the viewer. The handle is released
// after OpenTTL, or earlier by the next navigation.
func (s *libraryService) Open(ctx context.Context, item models.MediaItem) ([]byte, error) {
	h, err := s.loader.Load(ctx, s.viewer, item.FetchPath)
	if err != nil {
		return nil, err
	}

	data, err := s.loader.Registry().Open(h.ID)
	if err != nil {
		return nil, err
	}

	reg := s.loader.Registry()
	time.AfterFunc(s.opts.OpenTTL, func() { reg.Release(h.ID) })
	return data, nil
}

// Download fetches item and hands it to the sink. The handle lives only for
// the duration of the call.
func (s *libraryService) Download(ctx context.Context, item models.MediaItem) (string, error) {
	slot := resources.NewSlot("download:" + item.RemoteID)
	defer s.loader.Clear(slot)

	if _, err := s.loader.Load(ctx, slot, item.FetchPath); err != nil {
		return "", err
	}

	data, err := s.loader.Open(slot)
	if err != nil {
		return "", err
	}

	loc, err := s.sink.Save(ctx, item.OriginalName, data)
	if err != nil {
		return "", err
	}
	s.log.Info(ctx, "image saved", "name", item.OriginalName, "location", loc)
	return loc, nil
}

// Link returns the absolute URL of the item. Fetching it still requires
// the bearer credential.
func (s *libraryService) Link(item models.MediaItem) (string, error) {
	return s.client.ResolveURL(item.FetchPath)
}

// Toggle adds or removes a received image from the batch selection.
func (s *libraryService) Toggle(item models.MediaItem, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.Kind != KindReceived || !s.current.contains(item.FetchPath) {
		return ErrNotInListing
	}

	if on {
		s.selection[item.FetchPath] = item
	} else {
		delete(s.selection, item.FetchPath)
	}
	return nil
}

func (l *Listing) contains(fetchPath string) bool {
	for _, e := range l.Entries {
		if e.Item.FetchPath == fetchPath {
			return true
		}
	}
	return false
}

// Selection returns a copy of the batch selection, fetch path to name.
func (s *libraryService) Selection() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.selection))
	for k, v := range s.selection {
		out[k] = v.OriginalName
	}
	return out
}

// DownloadSelected downloads every selected image one after another,
// ordered by name. A failed item does not stop the batch; saved items are
// kept and failed ones are not retried. The returned error joins the
// failures and names each item.
func (s *libraryService) DownloadSelected(ctx context.Context) (BatchResult, error) {
	s.mu.Lock()
	items := make([]models.MediaItem, 0, len(s.selection))
	for _, it := range s.selection {
		items = append(items, it)
	}
	s.mu.Unlock()

	if len(items) == 0 {
		return BatchResult{}, ErrNoSelection
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].OriginalName != items[j].OriginalName {
			return items[i].OriginalName < items[j].OriginalName
		}
		return items[i].FetchPath < items[j].FetchPath
	})

	var res BatchResult
	var errs []error
	for _, item := range items {
		loc, err := s.Download(ctx, item)
		if err != nil {
			res.Failed = append(res.Failed, FailedItem{Name: item.OriginalName, Err: err})
			errs = append(errs, fmt.Errorf("%s: %w", item.OriginalName, err))
			continue
		}
		res.Saved = append(res.Saved, SavedItem{Name: item.OriginalName, Location: loc})
	}

	s.log.Info(ctx, "batch download finished", "saved", len(res.Saved), "failed", len(res.Failed))
	return res, errors.Join(errs...)
}
