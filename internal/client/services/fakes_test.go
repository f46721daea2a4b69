package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/picdrop/internal/client/models"
)

// fakeClient implements client.Client. Fields are guarded by mu because
// thumbnail loads call FetchProtected concurrently.
type fakeClient struct {
	mu sync.Mutex

	RegisterRet string
	RegisterErr error

	LoginToken    string
	LoginIdentity models.Identity
	LoginErr      error

	ChangePasswordErr error

	ContactsRet []models.Contact
	ContactsErr error

	DeleteContactErr error
	SearchRet        []models.Contact
	SearchErr        error

	SendRet models.SendReceipt
	SendErr error

	SentRet     []models.MediaItem
	SentErr     error
	ReceivedRet []models.ReceivedGroup
	ReceivedErr error

	// FetchData and FetchErrs are keyed by ref.
	FetchData map[string][]byte
	FetchErrs map[string]error
	// FetchGate, when set, holds every fetch until it is closed.
	FetchGate chan struct{}

	LastRegisterUser  string
	LastLoginUser     string
	LastLoginPassword string
	LastNewPassword   string
	LastDeleted       string
	LastQuery         string
	LastSendTo        string
	LastSendName      string
	LastSendData      []byte

	ContactsCalls int
	SearchCalls   int
	SendCalls     int
	Fetched       []string
}

func (f *fakeClient) Register(ctx context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastRegisterUser = username
	return f.RegisterRet, f.RegisterErr
}

func (f *fakeClient) Login(ctx context.Context, username, password string) (string, models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastLoginUser = username
	f.LastLoginPassword = password
	return f.LoginToken, f.LoginIdentity, f.LoginErr
}

func (f *fakeClient) ChangePassword(ctx context.Context, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastNewPassword = newPassword
	return f.ChangePasswordErr
}

func (f *fakeClient) Contacts(ctx context.Context) ([]models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ContactsCalls++
	return f.ContactsRet, f.ContactsErr
}

func (f *fakeClient) DeleteContact(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastDeleted = username
	return f.DeleteContactErr
}

func (f *fakeClient) SearchUsers(ctx context.Context, query string) ([]models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SearchCalls++
	f.LastQuery = query
	return f.SearchRet, f.SearchErr
}

func (f *fakeClient) SendImage(ctx context.Context, to, filename string, data []byte) (models.SendReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SendCalls++
	f.LastSendTo = to
	f.LastSendName = filename
	f.LastSendData = data
	return f.SendRet, f.SendErr
}

func (f *fakeClient) ListSent(ctx context.Context) ([]models.MediaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SentRet, f.SentErr
}

func (f *fakeClient) ListReceived(ctx context.Context) ([]models.ReceivedGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ReceivedRet, f.ReceivedErr
}

func (f *fakeClient) FetchProtected(ctx context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	f.Fetched = append(f.Fetched, ref)
	gate := f.FetchGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FetchErrs[ref]; err != nil {
		return nil, err
	}
	return f.FetchData[ref], nil
}

func (f *fakeClient) ResolveURL(ref string) (string, error) {
	return "https://api.example.com" + ref, nil
}

func (f *fakeClient) fetchCount(ref string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.Fetched {
		if r == ref {
			n++
		}
	}
	return n
}

type fakeSession struct {
	LoginToken    string
	LoginIdentity models.Identity
	LoginCalls    int
	ChangedCalls  int
	LogoutCalls   int
	Err           error
}

func (f *fakeSession) LoginSucceeded(ctx context.Context, token string, identity models.Identity) error {
	f.LoginCalls++
	f.LoginToken = token
	f.LoginIdentity = identity
	return f.Err
}

func (f *fakeSession) CredentialChanged(ctx context.Context) error {
	f.ChangedCalls++
	return f.Err
}

func (f *fakeSession) Logout(ctx context.Context) error {
	f.LogoutCalls++
	return f.Err
}

type savedFile struct {
	name string
	data []byte
}

type fakeSink struct {
	mu    sync.Mutex
	saved []savedFile
	errs  map[string]error
}

func (f *fakeSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[name]; err != nil {
		return "", err
	}
	f.saved = append(f.saved, savedFile{name: name, data: data})
	return "/dl/" + name, nil
}
