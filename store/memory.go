package store

import (
	"context"
	"fmt"
	"sync"

	"omrledger/core"
)

// MemoryStore is an in-process implementation of core.BlockStore and
// core.Repository, used by tests and by the CLI's no-database mode (spec
// §9 supplement: the original prototype ran entirely in memory before the
// relational store was added). It never needs a schema or a driver, only
// the same locking discipline the real store gets from Postgres row locks.
type MemoryStore struct {
	mu sync.Mutex

	blocks []*core.Block

	sheets        map[string]*core.Sheet
	events        map[string][]core.Event
	signatures    map[string][]core.Signature // key: sheetID + "/" + attemptID
	interventions map[string]core.HumanIntervention
	answerKeys    map[string]core.AnswerKey
	evaluations   map[string]core.Evaluation
	results       map[string]core.Result // key: roll number
}

// NewMemoryStore returns an empty MemoryStore ready for use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sheets:        make(map[string]*core.Sheet),
		events:        make(map[string][]core.Event),
		signatures:    make(map[string][]core.Signature),
		interventions: make(map[string]core.HumanIntervention),
		answerKeys:    make(map[string]core.AnswerKey),
		evaluations:   make(map[string]core.Evaluation),
		results:       make(map[string]core.Result),
	}
}

func sigKey(sheetID, attemptID string) string { return sheetID + "/" + attemptID }

// --- core.BlockStore ---

func (m *MemoryStore) SaveBlock(ctx context.Context, b *core.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.blocks = append(m.blocks, &cp)
	return nil
}

func (m *MemoryStore) LoadBlocks(ctx context.Context) ([]*core.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.Block, len(m.blocks))
	copy(out, m.blocks)
	return out, nil
}

// --- core.Repository ---

func (m *MemoryStore) GetSheet(ctx context.Context, sheetID string) (*core.Sheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sheets[sheetID]
	if !ok {
		return nil, core.NewError(core.KindNotFound, fmt.Sprintf("sheet %s not found", sheetID))
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) SaveSheet(ctx context.Context, s *core.Sheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sheets[s.SheetID] = &cp
	return nil
}

func (m *MemoryStore) FindSheetByFileHash(ctx context.Context, fileHash string) (*core.Sheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sheets {
		if s.OriginalFileHash == fileHash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, core.NewError(core.KindNotFound, fmt.Sprintf("no sheet scanned with file hash %s", fileHash))
}

func (m *MemoryStore) AppendEvent(ctx context.Context, ev core.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.SheetID] = append(m.events[ev.SheetID], ev)
	return nil
}

func (m *MemoryStore) EventsBySheet(ctx context.Context, sheetID string) ([]core.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Event, len(m.events[sheetID]))
	copy(out, m.events[sheetID])
	return out, nil
}

func (m *MemoryStore) SaveSignature(ctx context.Context, sheetID, attemptID string, sig core.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sigKey(sheetID, attemptID)
	for i, existing := range m.signatures[key] {
		if existing.SignerType == sig.SignerType {
			m.signatures[key][i] = sig
			return nil
		}
	}
	m.signatures[key] = append(m.signatures[key], sig)
	return nil
}

func (m *MemoryStore) LoadSignatures(ctx context.Context, sheetID, attemptID string) ([]core.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sigKey(sheetID, attemptID)
	out := make([]core.Signature, len(m.signatures[key]))
	copy(out, m.signatures[key])
	return out, nil
}

func (m *MemoryStore) CreateIntervention(ctx context.Context, hi core.HumanIntervention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interventions[hi.InterventionID] = hi
	return nil
}

func (m *MemoryStore) ResolveIntervention(ctx context.Context, interventionID, resolution string) (core.HumanIntervention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hi, ok := m.interventions[interventionID]
	if !ok {
		return core.HumanIntervention{}, core.NewError(core.KindNotFound, fmt.Sprintf("intervention %s not found", interventionID))
	}
	hi.Status = core.InterventionResolved
	hi.Resolution = resolution
	m.interventions[interventionID] = hi
	return hi, nil
}

func (m *MemoryStore) ListInterventions(ctx context.Context, status string) ([]core.HumanIntervention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.HumanIntervention
	for _, hi := range m.interventions {
		if status == "" || string(hi.Status) == status {
			out = append(out, hi)
		}
	}
	return out, nil
}

func (m *MemoryStore) SaveAnswerKey(ctx context.Context, ak core.AnswerKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answerKeys[ak.ExamID] = ak
	return nil
}

func (m *MemoryStore) GetAnswerKey(ctx context.Context, examID string) (*core.AnswerKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ak, ok := m.answerKeys[examID]
	if !ok {
		return nil, core.NewError(core.KindNotFound, fmt.Sprintf("answer key for exam %s not found", examID))
	}
	return &ak, nil
}

func (m *MemoryStore) SaveEvaluation(ctx context.Context, ev core.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations[ev.SheetID] = ev
	return nil
}

func (m *MemoryStore) GetEvaluation(ctx context.Context, sheetID string) (*core.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.evaluations[sheetID]
	if !ok {
		return nil, core.NewError(core.KindNotFound, fmt.Sprintf("evaluation for sheet %s not found", sheetID))
	}
	return &ev, nil
}

func (m *MemoryStore) SaveResult(ctx context.Context, r core.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.RollNumber] = r
	return nil
}

func (m *MemoryStore) GetResultByRoll(ctx context.Context, rollNumber string) (*core.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[rollNumber]
	if !ok {
		return nil, core.NewError(core.KindNotFound, fmt.Sprintf("result for roll number %s not found", rollNumber))
	}
	return &r, nil
}

var _ core.BlockStore = (*MemoryStore)(nil)
var _ core.Repository = (*MemoryStore)(nil)
