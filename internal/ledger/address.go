/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the size of an account identifier in bytes.
const AddressLength = 20

// Address identifies an account on the ledger, either externally owned or a program.
type Address [AddressLength]byte

// ZeroAddress is the null identifier.
var ZeroAddress Address

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Short returns an abbreviated form for console output.
func (a Address) Short() string {
	s := a.String()
	return s[:8] + "..." + s[len(s)-4:]
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := HexToAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// HexToAddress parses a 0x-prefixed (or bare) 40 character hex string.
func HexToAddress(s string) (Address, error) {
	var a Address
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(trimmed) != AddressLength*2 {
		return a, fmt.Errorf("invalid address %q: expected %d hex characters", s, AddressLength*2)
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[:], raw)
	return a, nil
}

// MustHexToAddress is HexToAddress for constants and tests.
func MustHexToAddress(s string) Address {
	a, err := HexToAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromLabel derives a deterministic externally owned account from a
// human readable label such as "owner" or "executor".
func AddressFromLabel(label string) Address {
	var a Address
	copy(a[:], keccak256([]byte(label))[12:])
	return a
}

// contractAddress derives the address of a program account from its
// creator and the creator's nonce at creation time.
func contractAddress(creator Address, nonce uint64) Address {
	var buf [AddressLength + 8]byte
	copy(buf[:], creator[:])
	binary.BigEndian.PutUint64(buf[AddressLength:], nonce)

	var a Address
	copy(a[:], keccak256(buf[:])[12:])
	return a
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
