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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordInfo is the full view of a record as reported by the facade
type RecordInfo struct {
	Address     string          `json:"address" yaml:"address"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Period      uint64          `json:"period" yaml:"period"`
	Receiver    string          `json:"receiver" yaml:"receiver"`
	StartTime   time.Time       `json:"start_time" yaml:"start_time"`
	Claimed     decimal.Decimal `json:"claimed" yaml:"claimed"`
	Claimable   decimal.Decimal `json:"claimable" yaml:"claimable"`
	Vested      decimal.Decimal `json:"vested" yaml:"vested"`
	Paused      bool            `json:"paused" yaml:"paused"`
}

// RecordSpec is the input for creating or updating a record. Amount is in
// whole native units as written by humans, e.g. "1.5".
type RecordSpec struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	Period      string `yaml:"period"` // Go duration, e.g. "720h"
	Receiver    string `yaml:"receiver"`
}

// RecordManifest is the YAML seed file read by the deploy tool
type RecordManifest struct {
	Records []RecordSpec `yaml:"records"`
}

// TreasuryInfo summarizes the treasury state
type TreasuryInfo struct {
	Address    string          `json:"address"`
	Owner      string          `json:"owner"`
	Factory    string          `json:"factory"`
	Balance    decimal.Decimal `json:"balance"`
	MigratedTo string          `json:"migrated_to,omitempty"`
}

// ClaimResult represents the result of triggering a record claim
type ClaimResult struct {
	Success       bool            `json:"success"`
	Record        string          `json:"record"`
	Receiver      string          `json:"receiver,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionId string          `json:"transaction_id,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// Deployed holds the addresses of a complete deployment
type Deployed struct {
	TreasuryLogic string `json:"treasury_logic"`
	FactoryLogic  string `json:"factory_logic"`
	Treasury      string `json:"treasury"`
	Factory       string `json:"factory"`
}
