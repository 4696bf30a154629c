package repository

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"washika-dao/db"
	"washika-dao/models"
)

// ChainStore holds the block height that operations treat as "now"
type ChainStore interface {
	Height() (uint64, error)
	SetHeight(height uint64) error
}

// TokenStore holds balances, supply and delegate pointers
type TokenStore interface {
	Balance(p models.Principal) (uint64, error)
	SetBalance(p models.Principal, amount uint64) error
	TotalSupply() (uint64, error)
	SetTotalSupply(amount uint64) error
	Delegate(p models.Principal) (models.Principal, error)
	SetDelegate(p, delegatee models.Principal) error
	// Holders lists every principal with a non-zero balance
	Holders() ([]models.Principal, error)
}

// CheckpointStore holds each delegatee's ordered voting-power history
type CheckpointStore interface {
	CheckpointCount(p models.Principal) (uint64, error)
	Checkpoint(p models.Principal, index uint64) (models.Checkpoint, error)
	PutCheckpoint(p models.Principal, index uint64, cp models.Checkpoint) error
	SetCheckpointCount(p models.Principal, count uint64) error
	// Delegatees lists every principal that has ever held delegated votes
	Delegatees() ([]models.Principal, error)
}

// ProposalStore holds proposals, vote receipts and governance settings
type ProposalStore interface {
	Authority() (models.Principal, error)
	SetAuthority(p models.Principal) error
	Params() (models.Params, error)
	SetParams(params models.Params) error
	ProposalCount() (uint64, error)
	SetProposalCount(count uint64) error
	Proposal(id uint64) (*models.Proposal, error)
	PutProposal(p *models.Proposal) error
	Proposals() ([]*models.Proposal, error)
	LatestProposal(proposer models.Principal) (uint64, error)
	SetLatestProposal(proposer models.Principal, id uint64) error
	Receipt(id uint64, voter models.Principal) (models.Receipt, error)
	PutReceipt(id uint64, voter models.Principal, r models.Receipt) error
}

// TimelockStore holds batches queued in the in-process timelock
type TimelockStore interface {
	QueuedBatch(id uint64) (*models.TimelockBatch, error)
	PutQueuedBatch(b *models.TimelockBatch) error
	DeleteQueuedBatch(id uint64) error
}

// Repository abstracts the storage layer from the business logic
type Repository interface {
	ChainStore
	TokenStore
	CheckpointStore
	ProposalStore
	TimelockStore
	// Initialized reports whether genesis settings have been written
	Initialized() (bool, error)
}

// StateRepository implements Repository on top of a LevelDB transaction or snapshot
type StateRepository struct {
	kv db.KV
}

// NewStateRepository creates and returns a new StateRepository bound to kv
func NewStateRepository(kv db.KV) *StateRepository {
	return &StateRepository{kv: kv}
}

func (r *StateRepository) getUint(key []byte) (uint64, error) {
	data, err := r.kv.Get(key)
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt counter %s", key)
	}
	return binary.BigEndian.Uint64(data), nil
}

func (r *StateRepository) putUint(key []byte, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return r.kv.Put(key, buf[:])
}

// getJSON decodes the value at key into out. It reports false when the key is missing.
func (r *StateRepository) getJSON(key []byte, out any) (bool, error) {
	data, err := r.kv.Get(key)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *StateRepository) putJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.kv.Put(key, data)
}

func (r *StateRepository) Height() (uint64, error) {
	return r.getUint(keyHeight)
}

func (r *StateRepository) SetHeight(height uint64) error {
	return r.putUint(keyHeight, height)
}

func (r *StateRepository) Balance(p models.Principal) (uint64, error) {
	return r.getUint(balanceKey(p))
}

func (r *StateRepository) SetBalance(p models.Principal, amount uint64) error {
	if amount == 0 {
		return r.kv.Delete(balanceKey(p))
	}
	return r.putUint(balanceKey(p), amount)
}

func (r *StateRepository) TotalSupply() (uint64, error) {
	return r.getUint(keySupply)
}

func (r *StateRepository) SetTotalSupply(amount uint64) error {
	return r.putUint(keySupply, amount)
}

func (r *StateRepository) Delegate(p models.Principal) (models.Principal, error) {
	data, err := r.kv.Get(delegateKey(p))
	if errors.Is(err, db.ErrNotFound) {
		return models.NoDelegate, nil
	}
	if err != nil {
		return models.NoDelegate, fmt.Errorf("get delegate of %s: %w", p, err)
	}
	return models.Principal(data), nil
}

func (r *StateRepository) SetDelegate(p, delegatee models.Principal) error {
	if delegatee == models.NoDelegate {
		return r.kv.Delete(delegateKey(p))
	}
	return r.kv.Put(delegateKey(p), []byte(delegatee))
}

func (r *StateRepository) Holders() ([]models.Principal, error) {
	return r.principals(prefixBalance)
}

func (r *StateRepository) Delegatees() ([]models.Principal, error) {
	return r.principals(prefixCheckpointCount)
}

// principals returns the key suffixes under prefix, in key order
func (r *StateRepository) principals(prefix []byte) ([]models.Principal, error) {
	iter := r.kv.NewIterator(prefix)
	defer iter.Release()

	var out []models.Principal
	for iter.Next() {
		out = append(out, models.Principal(iter.Key()[len(prefix):]))
	}
	return out, iter.Error()
}

func (r *StateRepository) CheckpointCount(p models.Principal) (uint64, error) {
	return r.getUint(checkpointCountKey(p))
}

func (r *StateRepository) SetCheckpointCount(p models.Principal, count uint64) error {
	return r.putUint(checkpointCountKey(p), count)
}

func (r *StateRepository) Checkpoint(p models.Principal, index uint64) (models.Checkpoint, error) {
	var cp models.Checkpoint
	found, err := r.getJSON(checkpointKey(p, index), &cp)
	if err != nil {
		return cp, err
	}
	if !found {
		return cp, fmt.Errorf("checkpoint %d of %s missing", index, p)
	}
	return cp, nil
}

func (r *StateRepository) PutCheckpoint(p models.Principal, index uint64, cp models.Checkpoint) error {
	return r.putJSON(checkpointKey(p, index), cp)
}

func (r *StateRepository) Authority() (models.Principal, error) {
	data, err := r.kv.Get(keyAuthority)
	if errors.Is(err, db.ErrNotFound) {
		return models.NoDelegate, nil
	}
	if err != nil {
		return models.NoDelegate, fmt.Errorf("get authority: %w", err)
	}
	return models.Principal(data), nil
}

func (r *StateRepository) SetAuthority(p models.Principal) error {
	return r.kv.Put(keyAuthority, []byte(p))
}

func (r *StateRepository) Params() (models.Params, error) {
	var params models.Params
	found, err := r.getJSON(keyParams, &params)
	if err != nil {
		return params, err
	}
	if !found {
		return models.DefaultParams(), nil
	}
	return params, nil
}

func (r *StateRepository) SetParams(params models.Params) error {
	return r.putJSON(keyParams, params)
}

func (r *StateRepository) Initialized() (bool, error) {
	_, err := r.kv.Get(keyParams)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get params: %w", err)
	}
	return true, nil
}

func (r *StateRepository) ProposalCount() (uint64, error) {
	return r.getUint(keyProposalCount)
}

func (r *StateRepository) SetProposalCount(count uint64) error {
	return r.putUint(keyProposalCount, count)
}

// Proposal returns the proposal with the given id or models.ErrUnknownProposal
func (r *StateRepository) Proposal(id uint64) (*models.Proposal, error) {
	var p models.Proposal
	found, err := r.getJSON(proposalKey(id), &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrUnknownProposal
	}
	return &p, nil
}

func (r *StateRepository) PutProposal(p *models.Proposal) error {
	return r.putJSON(proposalKey(p.ID), p)
}

// Proposals returns every proposal in id order
func (r *StateRepository) Proposals() ([]*models.Proposal, error) {
	iter := r.kv.NewIterator(prefixProposal)
	defer iter.Release()

	var proposals []*models.Proposal
	for iter.Next() {
		var p models.Proposal
		if err := json.Unmarshal(iter.Value(), &p); err != nil {
			return nil, err
		}
		proposals = append(proposals, &p)
	}
	return proposals, iter.Error()
}

func (r *StateRepository) LatestProposal(proposer models.Principal) (uint64, error) {
	return r.getUint(latestProposalKey(proposer))
}

func (r *StateRepository) SetLatestProposal(proposer models.Principal, id uint64) error {
	return r.putUint(latestProposalKey(proposer), id)
}

// Receipt returns the voter's receipt; a zero Receipt means no vote yet
func (r *StateRepository) Receipt(id uint64, voter models.Principal) (models.Receipt, error) {
	var rcpt models.Receipt
	_, err := r.getJSON(receiptKey(id, voter), &rcpt)
	return rcpt, err
}

func (r *StateRepository) PutReceipt(id uint64, voter models.Principal, rcpt models.Receipt) error {
	return r.putJSON(receiptKey(id, voter), rcpt)
}

// QueuedBatch returns the queued batch for a proposal, or nil when none is queued
func (r *StateRepository) QueuedBatch(id uint64) (*models.TimelockBatch, error) {
	var b models.TimelockBatch
	found, err := r.getJSON(timelockKey(id), &b)
	if err != nil || !found {
		return nil, err
	}
	return &b, nil
}

func (r *StateRepository) PutQueuedBatch(b *models.TimelockBatch) error {
	return r.putJSON(timelockKey(b.ProposalID), b)
}

func (r *StateRepository) DeleteQueuedBatch(id uint64) error {
	return r.kv.Delete(timelockKey(id))
}
