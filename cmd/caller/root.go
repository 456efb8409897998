package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkeye/carecall/internal/adapters/media"
	"github.com/dkeye/carecall/internal/adapters/rtc"
	sig "github.com/dkeye/carecall/internal/adapters/signal"
	"github.com/dkeye/carecall/internal/app/call"
	"github.com/dkeye/carecall/internal/config"
	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "caller",
		Short: "caller is a terminal video call endpoint for the carecall relay.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("signal-url", "", "relay websocket URL")
	flags.String("user-id", "", "identity announced to the relay")
	flags.String("user-name", "", "display name shown to the callee")
	flags.Bool("admin", false, "identify as admin (receives presence and admins fan-out)")

	for key, flag := range map[string]string{
		"caller.signal_url": "signal-url",
		"caller.user_id":    "user-id",
		"caller.user_name":  "user-name",
		"caller.admin":      "admin",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

func run(parent context.Context, v *viper.Viper) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	self, err := domain.NewUser(cfg.Caller.UserID, cfg.Caller.UserName)
	if err != nil {
		return fmt.Errorf("user: %w", err)
	}

	client := sig.NewClient(sig.ClientOptions{
		URL:        cfg.Caller.SignalURL,
		Self:       self,
		Admin:      cfg.Caller.Admin,
		SendQueue:  cfg.SendQueue,
		PingPeriod: cfg.PingPeriod,
		OnPresence: func(p domain.PresencePayload) {
			fmt.Printf("presence: %s online=%v\n", p.UserID, p.Online)
		},
	})

	peers, err := rtc.NewFactory(rtc.ICEConfig{
		STUNServers:         cfg.Caller.ICE.STUNServers,
		DisconnectedTimeout: cfg.Caller.ICE.DisconnectedTimeout,
		FailedTimeout:       cfg.Caller.ICE.FailedTimeout,
		KeepAliveInterval:   cfg.Caller.ICE.KeepAliveInterval,
	})
	if err != nil {
		return fmt.Errorf("peer factory: %w", err)
	}

	devices, err := media.NewDeviceSource(media.Config{
		MaxWidth:     cfg.Caller.Media.MaxWidth,
		MaxHeight:    cfg.Caller.Media.MaxHeight,
		VideoBitRate: cfg.Caller.Media.VideoBitRate,
	})
	if err != nil {
		return fmt.Errorf("media: %w", err)
	}

	stats := &packetCounter{}
	out := os.Stdout
	machine := call.NewMachine(call.Options{
		Self:   self,
		Signal: client,
		Peers:  peers,
		Media:  call.NewMediaManager(devices),
		Timeouts: call.Timeouts{
			Setup:  cfg.Caller.SetupTimeout,
			Settle: cfg.Caller.SettleTimeout,
			Grace:  cfg.Caller.GracePeriod,
		},
		Hooks: call.Hooks{
			OnStateChange: func(s domain.CallState) {
				log.Debug().Str("module", "caller").Str("state", s.String()).Msg("state change")
			},
			OnIncomingCall: func(from domain.UserID, name string) {
				fmt.Fprintf(out, "incoming call from %s (%s): accept | reject\n", from, name)
			},
			OnRemoteStream: func(rs core.RemoteStream) {
				stats.reset()
				rs.AddSink("stats", stats)
				fmt.Fprintf(out, "remote media: %d track(s)\n", rs.TrackCount())
			},
			OnEnded: func(r call.EndReport) {
				fmt.Fprintf(out, "call with %s ended: %s\n", r.Remote, r.Reason)
			},
			OnError: func(err error) {
				fmt.Fprintf(out, "error: %v\n", err)
			},
		},
	})
	client.Bind(machine)

	con := &console{ctl: machine, stats: stats, out: out}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Run(gctx)
	})
	g.Go(func() error {
		err := con.run(gctx, os.Stdin)
		machine.End()
		cancel()
		return err
	})

	log.Info().Str("module", "caller").Str("user_id", string(self.ID)).Str("relay", cfg.Caller.SignalURL).Msg("caller started")
	return g.Wait()
}
