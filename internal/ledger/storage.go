package ledger

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Storage region names. Every account owns one of each: the header belongs
// to the account's own code and is never reachable from a delegated frame,
// the data region is what logic operates on.
const (
	HeaderRegion = "header"
	DataRegion   = "data"
)

// Storage is a persistent key/value region of an account. Values are kept in
// canonical text form; writing a zero value removes the slot. Every write is
// journaled so it is undone if the enclosing call frame reverts.
type Storage struct {
	owner  Address
	region string
	slots  map[string]string
	ledger *Ledger
}

func newStorage(l *Ledger, owner Address, region string) *Storage {
	return &Storage{owner: owner, region: region, slots: make(map[string]string), ledger: l}
}

func (s *Storage) Get(key string) (string, bool) {
	v, ok := s.slots[key]
	return v, ok
}

// Set writes value at key; an empty value deletes the slot.
func (s *Storage) Set(key, value string) {
	prev, had := s.slots[key]
	if had && prev == value {
		return
	}
	if !had && value == "" {
		return
	}

	s.ledger.journal.append(func() {
		if had {
			s.slots[key] = prev
		} else {
			delete(s.slots, key)
		}
	})
	if value == "" {
		delete(s.slots, key)
	} else {
		s.slots[key] = value
	}
	s.ledger.touch(s.owner)
}

func (s *Storage) Address(key string) Address {
	v, ok := s.slots[key]
	if !ok {
		return ZeroAddress
	}
	a, err := HexToAddress(v)
	if err != nil {
		return ZeroAddress
	}
	return a
}

func (s *Storage) SetAddress(key string, a Address) {
	if a.IsZero() {
		s.Set(key, "")
		return
	}
	s.Set(key, a.String())
}

func (s *Storage) Amount(key string) decimal.Decimal {
	v, ok := s.slots[key]
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (s *Storage) SetAmount(key string, d decimal.Decimal) {
	if d.IsZero() {
		s.Set(key, "")
		return
	}
	s.Set(key, d.String())
}

func (s *Storage) Bool(key string) bool {
	return s.slots[key] == "1"
}

func (s *Storage) SetBool(key string, b bool) {
	if b {
		s.Set(key, "1")
		return
	}
	s.Set(key, "")
}

func (s *Storage) String(key string) string {
	return s.slots[key]
}

func (s *Storage) SetString(key, value string) {
	s.Set(key, value)
}

func (s *Storage) Uint64(key string) uint64 {
	v, ok := s.slots[key]
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (s *Storage) SetUint64(key string, n uint64) {
	if n == 0 {
		s.Set(key, "")
		return
	}
	s.Set(key, strconv.FormatUint(n, 10))
}

// Keys returns the sorted keys starting with prefix.
func (s *Storage) Keys(prefix string) []string {
	var keys []string
	for k := range s.slots {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of all slots.
func (s *Storage) Snapshot() map[string]string {
	out := make(map[string]string, len(s.slots))
	for k, v := range s.slots {
		out[k] = v
	}
	return out
}

func (s *Storage) load(slots map[string]string) {
	s.slots = make(map[string]string, len(slots))
	for k, v := range slots {
		s.slots[k] = v
	}
}
