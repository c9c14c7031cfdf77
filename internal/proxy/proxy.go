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

package proxy

import (
	"fmt"

	"record-vesting-go/internal/ledger"

	"go.uber.org/zap"
)

// ProgramName is the code name proxies are deployed under.
const ProgramName = "proxy"

// Method signatures handled by the proxy itself. Everything else is forwarded.
const (
	SigInitialize     = "initialize(address,address,bytes)"
	SigUpgrade        = "upgrade(address)"
	SigTransferOwner  = "transferProxyOwnership(address)"
	SigProxyOwner     = "proxyOwner()"
	SigImplementation = "implementation()"
)

// Header slots. They live in the account's header region, which delegated
// logic cannot address.
const (
	slotOwner          = "proxy.owner"
	slotImplementation = "proxy.implementation"
	slotInitialized    = "proxy.initialized"
	slotDeployer       = "proxy.deployer"
)

// Proxy is a forwarding program: it keeps an implementation pointer and an
// owner and delegate-calls everything it does not recognise.
type Proxy struct {
	methods *ledger.Methods
}

func New() *Proxy {
	p := &Proxy{}
	p.methods = ledger.NewMethods(
		ledger.Method{Signature: SigInitialize, Handler: p.initialize},
		ledger.Method{Signature: SigUpgrade, Handler: p.upgrade},
		ledger.Method{Signature: SigTransferOwner, Handler: p.transferOwnership},
		ledger.Method{Signature: SigProxyOwner, Handler: p.owner},
		ledger.Method{Signature: SigImplementation, Handler: p.implementation},
	)
	return p
}

func (p *Proxy) Name() string {
	return ProgramName
}

// Construct records the deployer and, when given, the initial implementation.
func (p *Proxy) Construct(c *ledger.Context, args ledger.Values) error {
	h, err := c.Header()
	if err != nil {
		return err
	}
	h.SetAddress(slotDeployer, c.Sender())
	h.SetAddress(slotOwner, c.Sender())

	if len(args) == 0 {
		return nil
	}
	impl, err := args.Address(0)
	if err != nil {
		return err
	}
	if impl.IsZero() {
		return nil
	}
	if !c.HasCode(impl) {
		return fmt.Errorf("%w: %s", ledger.ErrNotContract, impl)
	}
	h.SetAddress(slotImplementation, impl)
	return nil
}

func (p *Proxy) Run(c *ledger.Context, call ledger.Calldata) (ledger.Values, error) {
	if !call.IsEmpty() && p.methods.Has(call.Selector()) {
		return p.methods.Run(c, call)
	}
	return p.forward(c, call)
}

func (p *Proxy) forward(c *ledger.Context, call ledger.Calldata) (ledger.Values, error) {
	h, err := c.Header()
	if err != nil {
		return nil, err
	}
	impl := h.Address(slotImplementation)
	if impl.IsZero() {
		return nil, fmt.Errorf("%w: proxy has no implementation", ledger.ErrZeroAddress)
	}
	// until initialize runs only the deployer reaches the logic
	if !h.Bool(slotInitialized) && c.Sender() != h.Address(slotDeployer) {
		return nil, fmt.Errorf("%w: proxy is not initialized", ledger.ErrUnauthorized)
	}
	return c.DelegateCall(impl, call)
}

// initialize sets the owner and implementation once, then runs initData
// against the proxy's own storage.
func (p *Proxy) initialize(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	if err := args.Expect(3); err != nil {
		return nil, err
	}
	h, err := c.Header()
	if err != nil {
		return nil, err
	}
	if h.Bool(slotInitialized) {
		return nil, ledger.ErrAlreadyInitialized
	}
	if c.Sender() != h.Address(slotDeployer) {
		return nil, fmt.Errorf("%w: only the deployer may initialize", ledger.ErrUnauthorized)
	}

	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	impl, err := args.Address(1)
	if err != nil {
		return nil, err
	}
	initData, err := args.Calldata(2)
	if err != nil {
		return nil, err
	}
	if owner.IsZero() || impl.IsZero() {
		return nil, ledger.ErrZeroAddress
	}
	if !c.HasCode(impl) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrNotContract, impl)
	}

	h.SetBool(slotInitialized, true)
	h.SetAddress(slotOwner, owner)
	h.SetAddress(slotImplementation, impl)
	c.Emit("Initialized", owner, impl)

	zap.L().Debug("Proxy initialized",
		zap.String("proxy", c.Self().String()),
		zap.String("owner", owner.String()),
		zap.String("implementation", impl.String()))

	if initData.IsEmpty() {
		return nil, nil
	}
	return c.DelegateCall(impl, initData)
}

func (p *Proxy) upgrade(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	h, err := p.requireOwner(c)
	if err != nil {
		return nil, err
	}
	impl, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	if impl.IsZero() {
		return nil, ledger.ErrZeroAddress
	}
	if !c.HasCode(impl) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrNotContract, impl)
	}

	previous := h.Address(slotImplementation)
	h.SetAddress(slotImplementation, impl)
	c.Emit("Upgraded", previous, impl)
	return nil, nil
}

func (p *Proxy) transferOwnership(c *ledger.Context, args ledger.Values) (ledger.Values, error) {
	h, err := p.requireOwner(c)
	if err != nil {
		return nil, err
	}
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, ledger.ErrZeroAddress
	}

	previous := h.Address(slotOwner)
	h.SetAddress(slotOwner, owner)
	c.Emit("ProxyOwnershipTransferred", previous, owner)
	return nil, nil
}

func (p *Proxy) owner(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	h, err := c.Header()
	if err != nil {
		return nil, err
	}
	return ledger.Values{h.Address(slotOwner)}, nil
}

func (p *Proxy) implementation(c *ledger.Context, _ ledger.Values) (ledger.Values, error) {
	h, err := c.Header()
	if err != nil {
		return nil, err
	}
	return ledger.Values{h.Address(slotImplementation)}, nil
}

func (p *Proxy) requireOwner(c *ledger.Context) (*ledger.Storage, error) {
	h, err := c.Header()
	if err != nil {
		return nil, err
	}
	if c.Sender() != h.Address(slotOwner) {
		return nil, ledger.ErrUnauthorized
	}
	return h, nil
}
