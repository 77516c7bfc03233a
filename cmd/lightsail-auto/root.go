package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ifung-0/lightsail-auto/pkg/answer"
	"github.com/ifung-0/lightsail-auto/pkg/browser"
	"github.com/ifung-0/lightsail-auto/pkg/config"
	"github.com/ifung-0/lightsail-auto/pkg/dashboard"
	"github.com/ifung-0/lightsail-auto/pkg/history"
	"github.com/ifung-0/lightsail-auto/pkg/idle"
	"github.com/ifung-0/lightsail-auto/pkg/logging"
	"github.com/ifung-0/lightsail-auto/pkg/navigate"
	"github.com/ifung-0/lightsail-auto/pkg/question"
	"github.com/ifung-0/lightsail-auto/pkg/session"
	"github.com/ifung-0/lightsail-auto/pkg/status"
)

const version = "0.2.0"

var (
	flagConfig        string
	flagHeadless      bool
	flagDashboardAddr string
)

var rootCmd = &cobra.Command{
	Use:   "lightsail-auto",
	Short: "Unattended LightSail reading session",
	Long: `lightsail-auto opens a browser session against LightSail, waits for
sign-in, then reads books at a humanlike pace: flipping pages, answering
assessments as they appear, and moving on to the next book when one
finishes. A local web dashboard shows live progress.`,
	SilenceUsage: true,
	RunE:         runSession,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lightsail-auto v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config.yaml", "path to the settings file")
	rootCmd.Flags().BoolVar(&flagHeadless, "headless", false, "run the browser without a window")
	rootCmd.Flags().StringVar(&flagDashboardAddr, "dashboard-addr", "", "dashboard bind address (overrides settings)")
	rootCmd.AddCommand(versionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewLogger("session")
	if err != nil {
		return fmt.Errorf("logger setup failed: %w", err)
	}
	defer logger.Close()

	settings, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if cmd.Flags().Changed("headless") {
		settings.Headless = flagHeadless
	}
	if cmd.Flags().Changed("dashboard-addr") {
		settings.DashboardAddr = flagDashboardAddr
	}

	logger.Infof("starting lightsail-auto v%s (run %s)", version, logger.RunID())

	hub := status.NewHub(logger)

	mgr := browser.NewManager(logger)
	dom, err := mgr.Start(browser.Options{
		Headless:         settings.Headless,
		StorageStatePath: settings.StorageStatePath,
	})
	if err != nil {
		return fmt.Errorf("browser startup failed: %w", err)
	}
	defer mgr.Shutdown()

	sim := idle.New(dom, logger)
	if err := sim.Install(); err != nil {
		logger.Warnf("could not install visibility override: %v", err)
	}

	backend := answer.NewClient(settings.Answer.APIKey,
		answer.WithBaseURL(settings.Answer.BaseURL),
		answer.WithModel(settings.Answer.Model),
		answer.WithLogger(logger),
	)
	if !backend.Enabled() {
		logger.Infof("answer backend disabled, questions use deterministic fallbacks")
	}

	nav, err := navigate.New(dom, logger, navigate.Options{
		LibraryURL:     settings.BaseURL,
		PreferredTitle: settings.PreferredBookTitle,
	})
	if err != nil {
		return err
	}

	resolver := question.New(dom, backend, logger, question.Options{
		ScreenshotDir: screenshotDir(settings, logger),
	})

	ctrl := session.New(dom, nav, resolver, hub, logger, session.Options{
		BaseURL:      settings.BaseURL,
		FlipInterval: time.Duration(settings.FlipInterval) * time.Second,
		Jitter:       time.Duration(settings.JitterSeconds) * time.Second,
		FlipPolicy:   settings.FlipPolicy,
		AutoAnswer:   settings.AutoAnswer,
		Username:     settings.Username,
		Password:     settings.Password,
		SaveStorageState: func() error {
			return mgr.SaveStorageState(settings.StorageStatePath)
		},
	})

	var store *history.Store
	if settings.HistoryPath != "" {
		store, err = history.Open(settings.HistoryPath)
		if err != nil {
			logger.Warnf("history disabled: %v", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if settings.DashboardAddr != "" {
		srv := dashboard.New(hub, store, logger)
		go func() {
			if err := srv.Start(settings.DashboardAddr); err != nil {
				logger.Errorf("dashboard stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
		fmt.Printf("Dashboard: http://%s\n", settings.DashboardAddr)
	}

	go sim.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down gracefully...")
		ctrl.Stop()
		cancel()
	}()

	runErr := ctrl.Run(ctx)
	cancel() // the idle simulator lives and dies with the session

	if store != nil {
		if err := store.Record(context.Background(), ctrl.Summary()); err != nil {
			logger.Warnf("could not record session history: %v", err)
		}
	}

	summary := ctrl.Summary()
	fmt.Printf("Session ended: %d pages read, %d books completed, %d/%d questions answered\n",
		summary.PagesRead, summary.BooksCompleted,
		summary.QuestionsAnswered, summary.QuestionsDetected)

	return runErr
}

// screenshotDir resolves where question screenshots land: a subdirectory of
// the run's log directory, or empty when the feature is off.
func screenshotDir(settings config.Settings, logger *logging.Logger) string {
	if !settings.ScreenshotOnQuestion {
		return ""
	}
	base, err := logging.Directory()
	if err != nil {
		logger.Warnf("question screenshots disabled: %v", err)
		return ""
	}
	dir := filepath.Join(base, "screenshots", logging.RunID())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warnf("question screenshots disabled: %v", err)
		return ""
	}
	return dir
}
