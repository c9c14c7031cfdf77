package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"record-vesting-go/internal/factory"
	"record-vesting-go/internal/ledger"
	"record-vesting-go/internal/models"
	"record-vesting-go/internal/record"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordTerms are the parsed, ledger-ready terms of a record.
type RecordTerms struct {
	Title       string
	Description string
	Amount      decimal.Decimal
	Period      uint64
	Receiver    ledger.Address
}

func (t RecordTerms) args() []any {
	return []any{t.Title, t.Description, t.Amount, t.Period, t.Receiver}
}

// ParseRecordSpec converts human terms into ledger terms. Period is a Go
// duration ("720h") or a number of seconds; it must be whole seconds.
func ParseRecordSpec(spec models.RecordSpec) (RecordTerms, error) {
	amount, err := ledger.ParseNative(spec.Amount)
	if err != nil {
		return RecordTerms{}, err
	}
	period, err := parsePeriod(spec.Period)
	if err != nil {
		return RecordTerms{}, err
	}
	receiver, err := ResolveAddress(spec.Receiver)
	if err != nil {
		return RecordTerms{}, fmt.Errorf("invalid receiver: %w", err)
	}
	return RecordTerms{
		Title:       spec.Title,
		Description: spec.Description,
		Amount:      amount,
		Period:      period,
		Receiver:    receiver,
	}, nil
}

func parsePeriod(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid period %q: %w", s, err)
	}
	if d < 0 || d%time.Second != 0 {
		return 0, fmt.Errorf("invalid period %q: must be a non-negative whole number of seconds", s)
	}
	return uint64(d / time.Second), nil
}

// CreateRecord asks the factory to deploy a record and register it with the
// treasury. caller must be the executor or the factory owner.
func (s *Service) CreateRecord(ctx context.Context, caller ledger.Address, terms RecordTerms) (ledger.Address, error) {
	if err := s.requireDeployed(); err != nil {
		return ledger.ZeroAddress, err
	}

	r, err := s.transact(ctx, caller, s.factory, ledger.NewCall(factory.SigCreateRecord, terms.args()...))
	if err != nil {
		zap.L().Error("Record creation failed",
			zap.String("title", terms.Title),
			zap.String("receiver", terms.Receiver.String()),
			zap.Error(err))
		return ledger.ZeroAddress, fmt.Errorf("create record: %w", err)
	}

	addr, err := r.Return.Address(0)
	if err != nil {
		return ledger.ZeroAddress, err
	}

	zap.L().Info("Record created",
		zap.String("record", addr.String()),
		zap.String("title", terms.Title),
		zap.String("amount", ledger.FormatNative(terms.Amount)),
		zap.Uint64("period", terms.Period),
		zap.String("receiver", terms.Receiver.String()))
	return addr, nil
}

// UpdateRecord replaces the terms of rec; vesting progress is kept.
func (s *Service) UpdateRecord(ctx context.Context, caller, rec ledger.Address, terms RecordTerms) error {
	if err := s.requireDeployed(); err != nil {
		return err
	}
	args := append([]any{rec}, terms.args()...)
	if _, err := s.transact(ctx, caller, s.factory, ledger.NewCall(factory.SigUpdateRecord, args...)); err != nil {
		return fmt.Errorf("update record %s: %w", rec.Short(), err)
	}
	return nil
}

func (s *Service) PauseRecord(ctx context.Context, caller, rec ledger.Address) error {
	return s.recordAdmin(ctx, caller, rec, factory.SigPauseRecord)
}

func (s *Service) UnpauseRecord(ctx context.Context, caller, rec ledger.Address) error {
	return s.recordAdmin(ctx, caller, rec, factory.SigUnpauseRecord)
}

func (s *Service) recordAdmin(ctx context.Context, caller, rec ledger.Address, sig string) error {
	if err := s.requireDeployed(); err != nil {
		return err
	}
	if _, err := s.transact(ctx, caller, s.factory, ledger.NewCall(sig, rec)); err != nil {
		return fmt.Errorf("%s %s: %w", ledger.NewCall(sig).Method(), rec.Short(), err)
	}
	return nil
}

// ClaimRewardForRecord triggers a claim through the factory, which only the
// factory owner may do. A reverted claim is reported in the result, not as
// an error.
func (s *Service) ClaimRewardForRecord(ctx context.Context, caller, rec ledger.Address) (*models.ClaimResult, error) {
	if err := s.requireDeployed(); err != nil {
		return nil, err
	}
	return s.claim(ctx, caller, s.factory, rec, ledger.NewCall(factory.SigClaimRewardForRecord, rec))
}

// ClaimRecord calls claim on the record directly. Anyone may do this; the
// payout always goes to the receiver.
func (s *Service) ClaimRecord(ctx context.Context, caller, rec ledger.Address) (*models.ClaimResult, error) {
	return s.claim(ctx, caller, rec, rec, ledger.NewCall(record.SigClaim))
}

func (s *Service) claim(ctx context.Context, caller, to, rec ledger.Address, data ledger.Calldata) (*models.ClaimResult, error) {
	r, err := s.transact(ctx, caller, to, data)
	if err != nil {
		zap.L().Warn("Claim failed",
			zap.String("record", rec.String()),
			zap.String("caller", caller.String()),
			zap.Error(err))

		result := &models.ClaimResult{Success: false, Record: rec.String(), Error: err.Error()}
		if r != nil {
			result.TransactionId = r.Id
		}
		return result, nil
	}

	amount, err := r.Return.Amount(0)
	if err != nil {
		return nil, err
	}
	receiver := ""
	if ret, err := s.view(ctx, rec, ledger.NewCall(record.SigReceiver)); err == nil {
		if addr, err := ret.Address(0); err == nil {
			receiver = addr.String()
		}
	}

	zap.L().Info("Claim processed",
		zap.String("record", rec.String()),
		zap.String("receiver", receiver),
		zap.String("amount", ledger.FormatNative(amount)),
		zap.String("tx_id", r.Id))

	return &models.ClaimResult{
		Success:       true,
		Record:        rec.String(),
		Receiver:      receiver,
		Amount:        amount,
		TransactionId: r.Id,
	}, nil
}

// GetRecord reads every field of a record.
func (s *Service) GetRecord(ctx context.Context, rec ledger.Address) (*models.RecordInfo, error) {
	v := &viewer{ctx: ctx, s: s, to: rec}
	info := &models.RecordInfo{
		Address:     rec.String(),
		Title:       v.getString(record.SigTitle),
		Description: v.getString(record.SigDescription),
		Amount:      v.getAmount(record.SigAmount),
		Period:      v.getUint64(record.SigPeriod),
		Receiver:    v.getAddress(record.SigReceiver).String(),
		StartTime:   time.Unix(int64(v.getUint64(record.SigStartTime)), 0).UTC(),
		Claimed:     v.getAmount(record.SigClaimed),
		Claimable:   v.getAmount(record.SigClaimable),
		Vested:      v.getAmount(record.SigVested),
		Paused:      v.getBool(record.SigPaused),
	}
	if v.err != nil {
		return nil, fmt.Errorf("read record %s: %w", rec.Short(), v.err)
	}
	return info, nil
}

// ListRecords returns the records created by the factory, in creation order.
func (s *Service) ListRecords(ctx context.Context) ([]ledger.Address, error) {
	if err := s.requireDeployed(); err != nil {
		return nil, err
	}
	v := &viewer{ctx: ctx, s: s, to: s.factory}
	n := v.getUint64(factory.SigRecordCount)
	if v.err != nil {
		return nil, v.err
	}

	records := make([]ledger.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		records = append(records, v.getAddress(factory.SigRecordAt, i))
	}
	if v.err != nil {
		return nil, v.err
	}
	return records, nil
}

// IsRecord reports whether the factory created rec.
func (s *Service) IsRecord(ctx context.Context, rec ledger.Address) (bool, error) {
	if err := s.requireDeployed(); err != nil {
		return false, err
	}
	v := &viewer{ctx: ctx, s: s, to: s.factory}
	known := v.getBool(factory.SigRecordContracts, rec)
	return known, v.err
}

// viewer runs a series of views against one account, keeping the first error.
type viewer struct {
	ctx context.Context
	s   *Service
	to  ledger.Address
	err error
}

func (v *viewer) get(sig string, args ...any) ledger.Values {
	if v.err != nil {
		return nil
	}
	ret, err := v.s.view(v.ctx, v.to, ledger.NewCall(sig, args...))
	if err != nil {
		v.err = err
		return nil
	}
	if len(ret) == 0 {
		v.err = fmt.Errorf("%s returned nothing", sig)
	}
	return ret
}

func (v *viewer) getString(sig string, args ...any) string {
	ret := v.get(sig, args...)
	if v.err != nil {
		return ""
	}
	out, err := ret.String(0)
	v.keep(err)
	return out
}

func (v *viewer) getAmount(sig string, args ...any) decimal.Decimal {
	ret := v.get(sig, args...)
	if v.err != nil {
		return decimal.Zero
	}
	out, err := ret.Amount(0)
	v.keep(err)
	return out
}

func (v *viewer) getUint64(sig string, args ...any) uint64 {
	ret := v.get(sig, args...)
	if v.err != nil {
		return 0
	}
	out, err := ret.Uint64(0)
	v.keep(err)
	return out
}

func (v *viewer) getAddress(sig string, args ...any) ledger.Address {
	ret := v.get(sig, args...)
	if v.err != nil {
		return ledger.ZeroAddress
	}
	out, err := ret.Address(0)
	v.keep(err)
	return out
}

func (v *viewer) getBool(sig string, args ...any) bool {
	ret := v.get(sig, args...)
	if v.err != nil {
		return false
	}
	out, err := ret.Bool(0)
	v.keep(err)
	return out
}

func (v *viewer) keep(err error) {
	if v.err == nil && err != nil {
		v.err = err
	}
}
