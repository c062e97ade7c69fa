package wire

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/basisfi/flashlend/lender"
	"github.com/basisfi/flashlend/world"
)

var (
	// ErrUnknownMethod rejects a selector outside the lender surface.
	ErrUnknownMethod = errors.New("wire: unknown method selector")

	// ErrBadCalldata rejects calldata that does not decode against the
	// resolved method.
	ErrBadCalldata = errors.New("wire: malformed calldata")

	// ErrUnsupportedMethod rejects a funding operation the attached
	// lender variant does not provide.
	ErrUnsupportedMethod = errors.New("wire: method not supported by this lender")

	// ErrNoHandler rejects a callback descriptor whose target is not a
	// registered handler contract.
	ErrNoHandler = errors.New("wire: callback target is not a handler")
)

// Funding operations are variant-specific; the dispatcher discovers what
// the attached lender supports.
type syncer interface {
	Sync() error
	Defund(caller common.Address) error
}

type depositor interface {
	Deposit(caller common.Address, amount *big.Int) error
	End(caller common.Address) error
}

// Dispatcher resolves calldata to lender operations: selector to method,
// arguments to decoded values, callback descriptor to a live handler via
// the world. Lender faults pass through unchanged, sentinels intact.
type Dispatcher struct {
	*Codec
	world  *world.World
	lender lender.FlashLender
	logger *zap.Logger
}

// NewDispatcher binds a lender and its world to the wire surface.
func NewDispatcher(w *world.World, l lender.FlashLender, logger *zap.Logger) (*Dispatcher, error) {
	if w == nil {
		return nil, errors.New("wire: world is required")
	}
	if l == nil {
		return nil, errors.New("wire: lender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	return &Dispatcher{Codec: codec, world: w, lender: l, logger: logger}, nil
}

// Dispatch decodes calldata from caller, runs the operation, and packs
// the result. Operations without a declared return value yield nil.
func (d *Dispatcher) Dispatch(caller common.Address, calldata []byte) ([]byte, error) {
	if len(calldata) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadCalldata, len(calldata))
	}
	method, err := d.abi.MethodById(calldata[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnknownMethod, calldata[:4])
	}

	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, calldata[4:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCalldata, err)
	}

	d.logger.Debug("dispatching",
		zap.String("method", method.Name),
		zap.String("caller", caller.Hex()))

	switch method.Name {
	case "flash":
		payload, err := d.flash(caller, args)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(payload)

	case "maxFlashLoan":
		asset, err := addressArg(args, "token")
		if err != nil {
			return nil, err
		}
		max, err := d.lender.MaxFlashLoan(asset)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(max)

	case "flashFee":
		asset, err := addressArg(args, "token")
		if err != nil {
			return nil, err
		}
		amount, err := amountArg(args, "amount")
		if err != nil {
			return nil, err
		}
		fee, err := d.lender.FlashFee(asset, amount)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(fee)

	case "sync":
		s, ok := d.lender.(syncer)
		if !ok {
			return nil, fmt.Errorf("%w: sync", ErrUnsupportedMethod)
		}
		return nil, s.Sync()

	case "defund":
		s, ok := d.lender.(syncer)
		if !ok {
			return nil, fmt.Errorf("%w: defund", ErrUnsupportedMethod)
		}
		return nil, s.Defund(caller)

	case "deposit":
		dep, ok := d.lender.(depositor)
		if !ok {
			return nil, fmt.Errorf("%w: deposit", ErrUnsupportedMethod)
		}
		amount, err := amountArg(args, "amount")
		if err != nil {
			return nil, err
		}
		return nil, dep.Deposit(caller, amount)

	case "end":
		dep, ok := d.lender.(depositor)
		if !ok {
			return nil, fmt.Errorf("%w: end", ErrUnsupportedMethod)
		}
		return nil, dep.End(caller)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
	}
}

func (d *Dispatcher) flash(caller common.Address, args map[string]interface{}) ([]byte, error) {
	receiver, err := addressArg(args, "receiver")
	if err != nil {
		return nil, err
	}
	asset, err := addressArg(args, "token")
	if err != nil {
		return nil, err
	}
	amount, err := amountArg(args, "amount")
	if err != nil {
		return nil, err
	}
	data, ok := args["data"].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: data", ErrBadCalldata)
	}
	desc, ok := args["callback"].([24]byte)
	if !ok {
		return nil, fmt.Errorf("%w: callback", ErrBadCalldata)
	}

	target, methodToken := UnpackCallback(desc)
	contract, ok := d.world.ContractAt(target)
	if !ok {
		return nil, fmt.Errorf("%w: nothing at %s", ErrNoHandler, target.Hex())
	}
	handler, ok := contract.(lender.Handler)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, target.Hex())
	}

	return d.lender.Flash(caller, receiver, asset, amount, data,
		lender.Callback{Target: handler, Method: methodToken})
}

func addressArg(args map[string]interface{}, name string) (common.Address, error) {
	v, ok := args[name].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrBadCalldata, name)
	}
	return v, nil
}

func amountArg(args map[string]interface{}, name string) (*big.Int, error) {
	v, ok := args[name].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadCalldata, name)
	}
	return v, nil
}
