package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/model"
	"github.com/MagicSoftDev0717/send-contract-toemail-render/pkg/logger"
	"github.com/google/uuid"
)

// Object key folders below each contract id.
const (
	currentFolder  = "current"
	originalFolder = "original"
)

var contractIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Submission is an artist's contract proposal to a label.
type Submission struct {
	ContractID    string
	ArtistEmail   string
	LabelEmail    string
	PDFBase64     string
	FileName      string
	ArtistName    string
	LabelName     string
	ArtistAddress string
	LabelAddress  string
}

// Decision is a label's answer relayed to the artist.
type Decision struct {
	ArtistName  string
	LabelName   string
	ArtistEmail string
	LabelEmail  string
	PDFBase64   string
	FileName    string
	Approved    bool
}

// ContractService implements the contract lifecycle: submit, retrieve,
// stamp a status and relay decisions.
type ContractService struct {
	store     ContractStore
	files     FileStorage
	annotator *PDFAnnotator
	notifier  *Notifier
	locks     *keyedMutex
}

func NewContractService(store ContractStore, files FileStorage, annotator *PDFAnnotator, notifier *Notifier) *ContractService {
	return &ContractService{
		store:     store,
		files:     files,
		annotator: annotator,
		notifier:  notifier,
		locks:     newKeyedMutex(),
	}
}

// Submit stores the PDF and record, then emails the label.
// It returns the stored contract, including a generated id when none was given.
func (s *ContractService) Submit(ctx context.Context, sub Submission) (*model.Contract, error) {
	if err := requireFields(map[string]string{
		"artistEmail": sub.ArtistEmail,
		"labelEmail":  sub.LabelEmail,
		"pdfBase64":   sub.PDFBase64,
		"fileName":    sub.FileName,
	}); err != nil {
		return nil, err
	}

	contractID, err := resolveContractID(sub.ContractID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithContractID(ctx, contractID)

	fileName, err := cleanFileName(sub.FileName)
	if err != nil {
		return nil, err
	}
	pdf, err := decodePDF(sub.PDFBase64)
	if err != nil {
		return nil, err
	}

	contract := &model.Contract{
		ID:            contractID,
		FileName:      fileName,
		ObjectKey:     path.Join(contractID, currentFolder, fileName),
		OriginalKey:   path.Join(contractID, originalFolder, fileName),
		ArtistName:    strings.TrimSpace(sub.ArtistName),
		LabelName:     strings.TrimSpace(sub.LabelName),
		ArtistEmail:   strings.TrimSpace(sub.ArtistEmail),
		LabelEmail:    strings.TrimSpace(sub.LabelEmail),
		ArtistAddress: strings.TrimSpace(sub.ArtistAddress),
		LabelAddress:  strings.TrimSpace(sub.LabelAddress),
		CreatedAt:     time.Now(),
	}

	unlock := s.locks.Lock(contractID)
	err = s.persist(ctx, contract, pdf)
	unlock()
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "contract stored", "file_name", fileName, "size", len(pdf))

	if err := s.notifier.NotifyLabel(ctx, contract, pdf); err != nil {
		logger.Error(ctx, "failed to notify label", "operation", "submit", "label_email", contract.LabelEmail, "error", err)
		return nil, wrapDelivery(err)
	}
	logger.Info(ctx, "label notified", "label_email", contract.LabelEmail)

	return contract, nil
}

func (s *ContractService) persist(ctx context.Context, contract *model.Contract, pdf []byte) error {
	if err := s.files.Write(ctx, contract.OriginalKey, pdf); err != nil {
		logger.Error(ctx, "failed to store original contract file", "operation", "submit", "key", contract.OriginalKey, "error", err)
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	if err := s.files.Write(ctx, contract.ObjectKey, pdf); err != nil {
		logger.Error(ctx, "failed to store contract file", "operation", "submit", "key", contract.ObjectKey, "error", err)
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	if err := s.store.Put(ctx, contract); err != nil {
		logger.Error(ctx, "failed to save contract record", "operation", "submit", "error", err)
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return nil
}

// Metadata returns the stored record.
func (s *ContractService) Metadata(ctx context.Context, contractID string) (*model.Contract, error) {
	return s.lookup(logger.WithContractID(ctx, contractID), "metadata", contractID)
}

// File returns the record together with the current PDF bytes.
func (s *ContractService) File(ctx context.Context, contractID string) (*model.Contract, []byte, error) {
	ctx = logger.WithContractID(ctx, contractID)
	contract, err := s.lookup(ctx, "file", contractID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.read(ctx, "file", contract.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	return contract, data, nil
}

// FileURL returns a URL the PDF can be downloaded from.
func (s *ContractService) FileURL(ctx context.Context, contractID string) (string, error) {
	ctx = logger.WithContractID(ctx, contractID)
	contract, err := s.lookup(ctx, "file_url", contractID)
	if err != nil {
		return "", err
	}
	url, err := s.files.URL(ctx, contract.ID, contract.ObjectKey)
	if err != nil {
		logger.Error(ctx, "failed to build contract file url", "operation", "file_url", "error", err)
		return "", fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return url, nil
}

// UpdateStatus stamps status onto page 2 of a fresh copy of the submitted
// PDF, replaces the current PDF with it and returns the new bytes. Updates
// for one contract run one at a time.
func (s *ContractService) UpdateStatus(ctx context.Context, contractID, rawStatus string) ([]byte, error) {
	ctx = logger.WithContractID(ctx, contractID)

	if contractID == "" {
		return nil, model.Invalid("Missing required fields: contractId.")
	}
	status, err := model.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(contractID)
	defer unlock()

	contract, err := s.lookup(ctx, "update_status", contractID)
	if err != nil {
		return nil, err
	}
	original, err := s.read(ctx, "update_status", contract.OriginalKey)
	if err != nil {
		return nil, err
	}

	stamped, err := s.annotator.Annotate(original, status)
	switch {
	case errors.Is(err, model.ErrValidation):
		logger.Warn(ctx, "contract cannot be stamped", "operation", "update_status", "status", status, "error", err)
		return nil, err
	case err != nil:
		logger.Error(ctx, "failed to stamp contract", "operation", "update_status", "status", status, "error", err)
		return nil, err
	}

	if err := s.files.Write(ctx, contract.ObjectKey, stamped); err != nil {
		logger.Error(ctx, "failed to write stamped contract", "operation", "update_status", "key", contract.ObjectKey, "error", err)
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}

	logger.Info(ctx, "contract status updated", "status", status)
	return stamped, nil
}

// SendToArtist relays a label's decision and PDF to the artist. Nothing is stored.
func (s *ContractService) SendToArtist(ctx context.Context, d Decision) error {
	if err := requireFields(map[string]string{
		"artistEmail": d.ArtistEmail,
		"labelEmail":  d.LabelEmail,
		"pdfBase64":   d.PDFBase64,
		"fileName":    d.FileName,
	}); err != nil {
		return err
	}

	fileName, err := cleanFileName(d.FileName)
	if err != nil {
		return err
	}
	pdf, err := decodePDF(d.PDFBase64)
	if err != nil {
		return err
	}

	err = s.notifier.NotifyArtist(ctx, ArtistNotice{
		ArtistName:  strings.TrimSpace(d.ArtistName),
		LabelName:   strings.TrimSpace(d.LabelName),
		ArtistEmail: strings.TrimSpace(d.ArtistEmail),
		LabelEmail:  strings.TrimSpace(d.LabelEmail),
		FileName:    fileName,
		PDF:         pdf,
		Approved:    d.Approved,
	})
	if err != nil {
		logger.Error(ctx, "failed to notify artist", "operation", "send_to_artist", "artist_email", d.ArtistEmail, "error", err)
		return wrapDelivery(err)
	}
	logger.Info(ctx, "artist notified", "artist_email", d.ArtistEmail, "approved", d.Approved)
	return nil
}

func (s *ContractService) lookup(ctx context.Context, op, contractID string) (*model.Contract, error) {
	if contractID == "" {
		return nil, model.Invalid("Missing required fields: contractId.")
	}
	contract, err := s.store.Get(ctx, contractID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Warn(ctx, "contract not found in store", "operation", op)
			return nil, err
		}
		logger.Error(ctx, "failed to load contract record", "operation", op, "error", err)
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return contract, nil
}

func (s *ContractService) read(ctx context.Context, op, key string) ([]byte, error) {
	data, err := s.files.Read(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrFileMissing) {
			logger.Error(ctx, "contract record points at missing file", "operation", op, "key", key)
			return nil, err
		}
		logger.Error(ctx, "failed to read contract file", "operation", op, "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return data, nil
}

func wrapDelivery(err error) error {
	if errors.Is(err, model.ErrDelivery) {
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrDelivery, err)
}

// requireFields reports every blank field, in a stable order.
func requireFields(fields map[string]string) error {
	order := []string{"artistEmail", "labelEmail", "pdfBase64", "fileName"}
	var missing []string
	for _, name := range order {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return model.Invalid("Missing required fields: " + strings.Join(missing, ", ") + ".")
	}
	return nil
}

// resolveContractID generates an id when none is given and validates a client one.
func resolveContractID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return uuid.New().String(), nil
	}
	if !contractIDPattern.MatchString(id) {
		return "", model.Invalid("Invalid contractId. Use letters, digits, '.', '_' or '-' (max 128).")
	}
	return id, nil
}

func cleanFileName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", model.Invalid(fmt.Sprintf("Invalid fileName %q.", name))
	}
	return base, nil
}

// decodePDF accepts plain base64 or a data URL and requires a PDF header.
func decodePDF(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ";base64,"); strings.HasPrefix(payload, "data:") && i >= 0 {
		payload = payload[i+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, model.Invalid("pdfBase64 is not valid base64.")
		}
	}
	if !strings.HasPrefix(string(data[:min(len(data), 5)]), "%PDF-") {
		return nil, model.Invalid("pdfBase64 does not contain a PDF document.")
	}
	return data, nil
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
