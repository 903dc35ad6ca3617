package main

import (
	"lendingpool/address"
	"lendingpool/native/lending"
)

// memoryStateStore is a process-local lending.StateStore; a real deployment
// wires the engine to the host ledger's persistent key-value storage
// instead, matching Design Note "Per-user state replacing dynamic
// collections" from SPEC_FULL.md.
type memoryStateStore struct {
	configs   map[string]*lending.GlobalConfig
	reserves  map[string]*lending.Reserve
	positions map[string]*lending.UserPosition
}

func newMemoryStateStore() *memoryStateStore {
	return &memoryStateStore{
		configs:   make(map[string]*lending.GlobalConfig),
		reserves:  make(map[string]*lending.Reserve),
		positions: make(map[string]*lending.UserPosition),
	}
}

func (m *memoryStateStore) key(poolID string, who address.Address) string {
	return poolID + "/" + who.String()
}

func (m *memoryStateStore) GetConfig(poolID string) (*lending.GlobalConfig, error) {
	return m.configs[poolID], nil
}

func (m *memoryStateStore) PutConfig(poolID string, cfg *lending.GlobalConfig) error {
	m.configs[poolID] = cfg
	return nil
}

func (m *memoryStateStore) GetReserve(poolID string) (*lending.Reserve, error) {
	return m.reserves[poolID], nil
}

func (m *memoryStateStore) PutReserve(poolID string, r *lending.Reserve) error {
	m.reserves[poolID] = r
	return nil
}

func (m *memoryStateStore) GetPosition(poolID string, who address.Address) (*lending.UserPosition, error) {
	return m.positions[m.key(poolID, who)], nil
}

func (m *memoryStateStore) PutPosition(poolID string, pos *lending.UserPosition) error {
	m.positions[m.key(poolID, pos.Owner)] = pos
	return nil
}
