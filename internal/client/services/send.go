package services

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrijs2005/picdrop/internal/client/client"
	"github.com/dmitrijs2005/picdrop/internal/client/models"
	"github.com/dmitrijs2005/picdrop/internal/client/resources"
	"github.com/dmitrijs2005/picdrop/internal/client/target"
	"github.com/dmitrijs2005/picdrop/internal/logging"
)

// StagedFile describes the image waiting to be sent.
type StagedFile struct {
	Name        string
	Size        int
	ContentType string
}

// SendService stages one image and sends it to the selected target.
type SendService interface {
	Stage(ctx context.Context, name string, data []byte) error
	StageFile(ctx context.Context, path string) error
	Unstage()
	Staged() (StagedFile, bool)
	HasStagedFile() bool
	Preview() *resources.Slot
	Send(ctx context.Context) (models.SendReceipt, error)
}

type staged struct {
	info StagedFile
	data []byte
}

type sendService struct {
	client   client.Client
	selector *target.Selector
	loader   *resources.Loader
	contacts ContactsService
	log      logging.Logger

	preview *resources.Slot

	mu     sync.Mutex
	staged *staged
}

// NewSendService registers itself as the selector's stager.
func NewSendService(c client.Client, selector *target.Selector, loader *resources.Loader, contacts ContactsService, log logging.Logger) SendService {
	if log == nil {
		log = logging.Discard()
	}
	s := &sendService{
		client:   c,
		selector: selector,
		loader:   loader,
		contacts: contacts,
		log:      log,
		preview:  resources.NewSlot("preview"),
	}
	selector.SetStager(s)
	return s
}

func (s *sendService) Preview() *resources.Slot { return s.preview }

func (s *sendService) HasStagedFile() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged != nil
}

func (s *sendService) Staged() (StagedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == nil {
		return StagedFile{}, false
	}
	return s.staged.info, true
}

// Stage keeps data as the image to send and shows it in the preview slot.
func (s *sendService) Stage(ctx context.Context, name string, data []byte) error {
	ct := http.DetectContentType(data)
	if len(data) == 0 || !strings.HasPrefix(ct, "image/") {
		return ErrNotImage
	}

	st := &staged{
		info: StagedFile{Name: filepath.Base(name), Size: len(data), ContentType: ct},
		data: data,
	}

	s.mu.Lock()
	s.staged = st
	s.mu.Unlock()

	if _, err := s.loader.Adopt(ctx, s.preview, st.info.Name, data); err != nil {
		s.log.Debug(ctx, "preview not shown", "error", err)
	}
	s.selector.Recompute()
	return nil
}

// StageFile reads path and stages it under its base name.
func (s *sendService) StageFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return s.Stage(ctx, path, data)
}

func (s *sendService) Unstage() {
	s.mu.Lock()
	s.staged = nil
	s.mu.Unlock()

	s.loader.Clear(s.preview)
	s.selector.Recompute()
}

// Send uploads the staged image to the current target. The target is
// checked before the file. On failure the staged image is kept.
func (s *sendService) Send(ctx context.Context) (models.SendReceipt, error) {
	to, ok := s.selector.Current()
	if !ok {
		return models.SendReceipt{}, ErrMissingTarget
	}

	s.mu.Lock()
	st := s.staged
	s.mu.Unlock()
	if st == nil {
		return models.SendReceipt{}, ErrMissingFile
	}

	receipt, err := s.client.SendImage(ctx, to, st.info.Name, st.data)
	if err != nil {
		s.log.Warn(ctx, "send failed", "to", to, "name", st.info.Name, "error", err)
		return models.SendReceipt{}, err
	}

	s.mu.Lock()
	cleared := s.staged == st
	if cleared {
		s.staged = nil
	}
	s.mu.Unlock()

	if cleared {
		s.loader.Clear(s.preview)
	}
	s.selector.Recompute()

	s.log.Info(ctx, "image sent", "to", receipt.Receiver, "name", st.info.Name, "size", st.info.Size, "expires_at", receipt.ExpiresAt)

	if _, err := s.contacts.Load(ctx); err != nil {
		s.log.Warn(ctx, "refresh contacts after send", "error", err)
	}
	return receipt, nil
}
