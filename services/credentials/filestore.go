package credsvc

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core"
)

// Roles a token can be stored for.
const (
	RoleAdmin   = "admin"
	RoleLearner = "learner"
)

var errUnknownRole = errors.New("unknown role")

// FileStore keeps the admin and learner tokens in a JSON file readable by the owner only.
// When both are present the admin token is used.
type FileStore struct {
	path string

	mu sync.Mutex
}

var _ core.Credentials = (*FileStore)(nil)

type tokens struct {
	Admin   string `json:"admin_token,omitempty"`
	Learner string `json:"user_token,omitempty"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Path() string {
	return fs.path
}

// Token returns the token to send, or "" when logged out.
func (fs *FileStore) Token() (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	toks, err := fs.load()
	if err != nil {
		return "", err
	}
	if toks.Admin != "" {
		return toks.Admin, nil
	}
	return toks.Learner, nil
}

// Role reports which role the current token belongs to ("" when logged out).
func (fs *FileStore) Role() (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	toks, err := fs.load()
	if err != nil {
		return "", err
	}
	switch {
	case toks.Admin != "":
		return RoleAdmin, nil
	case toks.Learner != "":
		return RoleLearner, nil
	default:
		return "", nil
	}
}

// Store saves token for role and forgets the token of the other role.
func (fs *FileStore) Store(role, token string) error {
	var toks tokens
	switch role {
	case RoleAdmin:
		toks.Admin = token
	case RoleLearner:
		toks.Learner = token
	default:
		return errors.Wrap(errUnknownRole, role)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.save(toks)
}

// Invalidate drops the token in use. The other one, if any, becomes current.
func (fs *FileStore) Invalidate() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	toks, err := fs.load()
	if err != nil {
		return err
	}
	if toks.Admin != "" {
		toks.Admin = ""
	} else {
		toks.Learner = ""
	}
	return fs.save(toks)
}

// Clear removes every stored token.
func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing credentials")
	}
	return nil
}

func (fs *FileStore) load() (tokens, error) {
	var toks tokens
	data, err := ioutil.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return toks, nil
		}
		return toks, errors.Wrap(err, "reading credentials")
	}
	if err = json.Unmarshal(data, &toks); err != nil {
		return toks, errors.Wrapf(err, "decoding %s", fs.path)
	}
	return toks, nil
}

// save writes through a temp file so a crash never leaves half a file behind.
func (fs *FileStore) save(toks tokens) error {
	if toks == (tokens{}) {
		if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "removing credentials")
		}
		return nil
	}
	data, err := json.MarshalIndent(toks, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding credentials")
	}

	dir := filepath.Dir(fs.path)
	if err = os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "creating credentials dir")
	}
	tmp, err := ioutil.TempFile(dir, ".credentials-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name()) // no-op after the rename

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing credentials")
	}
	if err = tmp.Chmod(0600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "chmod credentials")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing credentials")
	}
	return errors.Wrap(os.Rename(tmp.Name(), fs.path), "saving credentials")
}
