package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/basisfi/flashlend/borrower"
	"github.com/basisfi/flashlend/config"
	"github.com/basisfi/flashlend/lender"
	"github.com/basisfi/flashlend/token"
	"github.com/basisfi/flashlend/utils"
	"github.com/basisfi/flashlend/utils/metrics"
	"github.com/basisfi/flashlend/utils/monitor"
	"github.com/basisfi/flashlend/wire"
	"github.com/basisfi/flashlend/world"
)

// Demo accounts living alongside the configured custodian and owner.
var (
	demoBorrowerAddr  = common.HexToAddress("0x00000000000000000000000000000000000b0770")
	demoInitiatorAddr = common.HexToAddress("0x0000000000000000000000000000000000001111")
	demoMethod        = lender.MethodToken{0xca, 0x11, 0xba, 0xcc}
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the custodian with scripted settlement rounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := utils.GetLogger()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		svc, err := buildService(cfg, log)
		if err != nil {
			return err
		}
		if err := svc.seed(); err != nil {
			return err
		}
		return svc.run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}

// service is the assembled custodian: world, token, lender, wire surface,
// and instrumentation.
type service struct {
	cfg        *config.Config
	log        *zap.Logger
	world      *world.World
	token      *token.Memory
	lender     lender.FlashLender
	dispatcher *wire.Dispatcher
	metrics    *metrics.CustodianMetrics
}

func buildService(cfg *config.Config, log *zap.Logger) (*service, error) {
	w := world.New(log)

	mode := token.ReturnBool
	if cfg.ReturnConvention == config.ReturnSilent {
		mode = token.ReturnNothing
	}
	tok := token.NewMemory(cfg.AssetAddress(), mode, log)
	if err := w.Register(cfg.AssetAddress(), tok); err != nil {
		return nil, err
	}
	if err := w.Register(cfg.OwnerAddress(), &borrower.Treasury{}); err != nil {
		return nil, err
	}

	m := metrics.NewCustodianMetrics("flashlend", nil)
	lcfg := lender.Config{
		Address:  cfg.CustodianAddress(),
		Owner:    cfg.OwnerAddress(),
		FeeBps:   cfg.FeeBps,
		Logger:   log,
		Recorder: metrics.NewRecorder(m, log),
	}

	var l lender.FlashLender
	var err error
	switch cfg.Mode {
	case config.ModeSync:
		l, err = lender.NewSyncLender(w, tok, lcfg)
	case config.ModeDeposit:
		l, err = lender.NewDepositLender(w, tok, lcfg)
	default:
		err = fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}
	if err := w.Register(cfg.CustodianAddress(), l); err != nil {
		return nil, err
	}

	b := &borrower.Repayer{
		Addr:    demoBorrowerAddr,
		Asset:   tok,
		Method:  demoMethod,
		Payload: []byte("settled"),
		Logger:  log,
	}
	if err := w.Register(demoBorrowerAddr, b); err != nil {
		return nil, err
	}

	d, err := wire.NewDispatcher(w, l, log)
	if err != nil {
		return nil, err
	}

	return &service{
		cfg:        cfg,
		log:        log,
		world:      w,
		token:      tok,
		lender:     l,
		dispatcher: d,
		metrics:    m,
	}, nil
}

// seed brings the configured initial funding into reserves through the
// wire surface, the way a live deployment would be funded.
func (s *service) seed() error {
	funding, err := s.cfg.InitialFundingWei()
	if err != nil {
		return err
	}

	switch s.cfg.Mode {
	case config.ModeSync:
		if err := s.token.Mint(s.cfg.CustodianAddress(), funding); err != nil {
			return err
		}
		calldata, err := s.dispatcher.EncodeSync()
		if err != nil {
			return err
		}
		if _, err := s.dispatcher.Dispatch(demoInitiatorAddr, calldata); err != nil {
			return fmt.Errorf("failed to sync reserves: %w", err)
		}

	case config.ModeDeposit:
		if err := s.token.Mint(demoBorrowerAddr, funding); err != nil {
			return err
		}
		if err := s.token.Approve(demoBorrowerAddr, s.cfg.CustodianAddress(), funding); err != nil {
			return err
		}
		calldata, err := s.dispatcher.EncodeDeposit(funding)
		if err != nil {
			return err
		}
		if _, err := s.dispatcher.Dispatch(demoBorrowerAddr, calldata); err != nil {
			return fmt.Errorf("failed to deposit reserves: %w", err)
		}
	}

	// Fee money for the demo borrower.
	if err := s.token.Mint(demoBorrowerAddr, new(big.Int).Rsh(funding, 4)); err != nil {
		return err
	}

	s.log.Info("custodian seeded",
		zap.String("mode", s.cfg.Mode),
		zap.String("reserves", s.lender.Reserves().String()))
	return nil
}

// run executes the scripted settlement rounds, then sweeps the custodian
// back to the owner.
func (s *service) run(ctx context.Context) error {
	if s.cfg.MetricsEnabled {
		go func() {
			if err := metrics.Serve(s.cfg.MetricsAddr, nil, s.log); err != nil {
				s.log.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	mon, err := monitor.NewRuntimeMonitor(ctx, s.log, prometheus.NewRegistry(), time.Second)
	if err != nil {
		return err
	}
	defer mon.Cleanup()

	amount, err := s.cfg.RoundAmountWei()
	if err != nil {
		return err
	}
	limiter := rate.NewLimiter(rate.Limit(s.cfg.Scenario.RoundsPerSecond), 1)

	for round := 1; round <= s.cfg.Scenario.Rounds; round++ {
		if err := limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				s.log.Info("shutting down", zap.Int("completed_rounds", round-1))
				return nil
			}
			return err
		}

		start := time.Now()
		calldata, err := s.dispatcher.EncodeFlash(demoBorrowerAddr, s.cfg.AssetAddress(),
			amount, nil, demoBorrowerAddr, demoMethod)
		if err != nil {
			return err
		}
		if _, err := s.dispatcher.Dispatch(demoInitiatorAddr, calldata); err != nil {
			s.log.Warn("settlement round failed",
				zap.Int("round", round),
				zap.Error(err))
		}
		s.metrics.ObserveRound(start)
	}

	s.log.Info("scenario complete",
		zap.Float64("success_rate", s.metrics.SuccessRate()),
		zap.String("reserves", s.lender.Reserves().String()))

	return s.sweep()
}

// sweep returns everything to the owner through the wire surface.
func (s *service) sweep() error {
	var calldata []byte
	var err error
	if s.cfg.Mode == config.ModeSync {
		calldata, err = s.dispatcher.EncodeDefund()
	} else {
		calldata, err = s.dispatcher.EncodeEnd()
	}
	if err != nil {
		return err
	}
	if _, err := s.dispatcher.Dispatch(s.cfg.OwnerAddress(), calldata); err != nil {
		return fmt.Errorf("failed to sweep custodian: %w", err)
	}

	ownerBal, err := s.token.BalanceOf(s.cfg.OwnerAddress())
	if err != nil {
		return err
	}
	s.log.Info("custodian swept", zap.String("owner_balance", ownerBal.String()))
	return nil
}
