// Command reedcmsd is the ReedCMS server and content-management CLI:
// "server io" starts the request dispatcher, "get"/"set" read and write
// ReedBase keys, and "taxonomy" manages hierarchical terms.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vvoss-dev/reedcms/internal/authn"
	"github.com/vvoss-dev/reedcms/internal/config"
	"github.com/vvoss-dev/reedcms/internal/csv"
	"github.com/vvoss-dev/reedcms/internal/obs"
	"github.com/vvoss-dev/reedcms/internal/ratelimit"
	"github.com/vvoss-dev/reedcms/internal/reedbase"
	"github.com/vvoss-dev/reedcms/internal/reedstream"
	"github.com/vvoss-dev/reedcms/internal/routing"
	"github.com/vvoss-dev/reedcms/internal/server"
	"github.com/vvoss-dev/reedcms/internal/taxonomy"
	"github.com/vvoss-dev/reedcms/internal/template"
)

var (
	reedDir     string
	configFile  string
	port        int
	socketPath  string
	environment string
)

// rootCmd is the top-level "reedcmsd" command; every ReedBase/taxonomy/
// server subcommand hangs off it, mirroring the original's
// "reed <namespace>:<action>" dispatch with cobra's noun-verb tree
// instead of a hand-parsed colon syntax.
var rootCmd = &cobra.Command{
	Use:   "reedcmsd",
	Short: "ReedCMS server and content management CLI",
	Long: `ReedCMS serves component-driven sites from flat-file CSV
content stores. reedcmsd starts the HTTP/Unix-socket server and
provides get/set/taxonomy commands for managing its ReedBase stores
without going through the running server.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&reedDir, "reed-dir", ".reed", "directory holding ReedBase CSV stores")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "Reed.toml", "path to Reed.toml")
	rootCmd.PersistentFlags().StringVar(&environment, "environment", "", "environment suffix applied to get/set lookups")

	rootCmd.AddCommand(serverCmd, getCmd, setCmd, taxonomyCmd)

	serverIoCmd.Flags().IntVar(&port, "port", 8333, "HTTP port")
	serverIoCmd.Flags().StringVar(&socketPath, "socket", "", "Unix socket path (overrides --port when set)")
	serverCmd.AddCommand(serverIoCmd)

	taxonomyCmd.AddCommand(taxonomyCreateCmd, taxonomyListCmd, taxonomyGetCmd, taxonomyDeleteCmd)
	taxonomyCreateCmd.Flags().String("category", "", "term category")
	taxonomyCreateCmd.Flags().String("parent", "", "parent term ID")
	taxonomyCreateCmd.Flags().String("description", "", "term description")
	taxonomyCreateCmd.Flags().String("color", "", "hex color #RRGGBB")
	taxonomyCreateCmd.Flags().String("icon", "", "icon name")
	taxonomyCreateCmd.Flags().String("created-by", "system", "creating user id")
	taxonomyListCmd.Flags().String("category", "", "filter by category")
	taxonomyListCmd.Flags().String("parent", "", "filter by parent (\"root\" for top-level)")
	taxonomyListCmd.Flags().String("status", "", "filter by status")
	taxonomyDeleteCmd.Flags().Bool("force", false, "delete child terms too")
}

func initConfig() {
	viper.SetConfigFile(configFile)
	viper.AutomaticEnv()
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Server lifecycle commands",
}

var serverIoCmd = &cobra.Command{
	Use:   "io",
	Short: "Start the server in the foreground",
	RunE:  runServerIo,
}

func runServerIo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		obs.Logger.WithField("error", err.Error()).Warn("Reed.toml not loaded, using command-line flags only")
		cfg = config.ReedConfig{Project: config.ProjectConfig{Languages: config.LanguageConfig{Default: "en", Available: []string{"en"}}}}
	}

	warm, err := reedbase.OpenWarmCache(filepath.Join(reedDir, "warm.bbolt"))
	if err != nil {
		obs.Logger.WithField("error", err.Error()).Warn("warm cache unavailable, starting cold")
		warm = nil
	}

	text, err := reedbase.InitWarm("text", filepath.Join(reedDir, "text.csv"), warm)
	if err != nil {
		return err
	}
	meta, err := reedbase.InitWarm("meta", filepath.Join(reedDir, "meta.csv"), warm)
	if err != nil {
		return err
	}
	routesCache, err := reedbase.InitWarm("route", filepath.Join(reedDir, "routes.csv"), warm)
	if err != nil {
		return err
	}
	configCache, err := reedbase.InitWarm("config", filepath.Join(reedDir, "config.csv"), warm)
	if err != nil {
		return err
	}

	router := routing.NewRouter(routesCache)
	if records, err := csv.ReadCSV(filepath.Join(reedDir, "routes.csv")); err == nil {
		for _, r := range records {
			layout, lang, ok := strings.Cut(r.Key, "@")
			if ok && !strings.Contains(lang, "@") {
				router.Register(layout, lang, r.Value)
			}
		}
	}
	languages := cfg.Project.Languages.Available
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	defaultLang := cfg.Project.Languages.Default
	if defaultLang == "" {
		defaultLang = languages[0]
	}

	dispatcher := &server.Dispatcher{
		Routes:       router,
		Languages:    routing.NewLanguageResolver(languages, defaultLang),
		Text:         text,
		Meta:         meta,
		Config:       configCache,
		Renderer:     template.NewRenderer(filepath.Join(reedDir, "..", "templates")),
		Globals:      template.Globals{SiteName: cfg.Project.Name, SiteURL: cfg.Project.URL, Languages: languages},
		StaticDir:    filepath.Join(reedDir, "..", "public"),
		RateLimiter:  ratelimit.New(ratelimit.NewInMemoryStore()),
		AuthUsers:    noUsers,
		ProtectedOps: map[string]ratelimit.Limit{},
	}

	serverCfg := server.DefaultConfig()
	if socketPath != "" {
		serverCfg.SocketPath = socketPath
	} else if port != 0 {
		serverCfg.Port = port
	}

	e := server.New(serverCfg, dispatcher.Handle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting ReedCMS server (port=%d socket=%q)\n", serverCfg.Port, serverCfg.SocketPath)
	runErr := server.Run(ctx, e, serverCfg)

	if warm != nil {
		if err := reedbase.SaveAll(warm, text, meta, routesCache, configCache); err != nil {
			obs.Logger.WithField("error", err.Error()).Warn("warm cache snapshot on shutdown failed")
		}
		if err := warm.Close(); err != nil {
			obs.Logger.WithField("error", err.Error()).Warn("warm cache close failed")
		}
	}

	return runErr
}

func noUsers(username string) (string, bool) {
	return "", false
}

var getCmd = &cobra.Command{
	Use:   "get [text|route|meta|config] KEY",
	Short: "Read a key from a ReedBase cache",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(args[0])
		if err != nil {
			return err
		}
		lang, _ := cmd.Flags().GetString("lang")
		req := reedstream.NewRequest(args[1])
		req.Language = lang
		req.Environment = environment
		resp, err := cache.Get(req)
		if err != nil {
			return err
		}
		fmt.Println(resp.Data)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set [text|route|meta|config] KEY VALUE",
	Short: "Write a key in a ReedBase cache",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(args[0])
		if err != nil {
			return err
		}
		lang, _ := cmd.Flags().GetString("lang")
		req := reedstream.NewRequest(args[1])
		req.Language = lang
		req.Environment = environment
		req.Value = args[2]
		req.HasValue = true
		_, err = cache.SetWithBackup(req)
		return err
	},
}

func init() {
	getCmd.Flags().String("lang", "", "language suffix for the lookup")
	setCmd.Flags().String("lang", "", "language suffix for the write")
}

func openCache(name string) (*reedbase.Cache, error) {
	switch name {
	case "text", "route", "meta", "config":
		file := name + ".csv"
		if name == "route" {
			file = "routes.csv"
		}
		return reedbase.Init(name, filepath.Join(reedDir, file))
	default:
		return nil, reedstream.Validation("cache", name, "must be one of text, route, meta, config")
	}
}

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Manage taxonomy terms",
}

func openTermStore() *taxonomy.Store {
	return taxonomy.NewStore(filepath.Join(reedDir, "taxonomie.matrix.csv"))
}

var taxonomyCreateCmd = &cobra.Command{
	Use:   "create TERM",
	Short: "Create a taxonomy term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		if category == "" {
			return reedstream.Validation("category", "", "--category flag required")
		}
		parent, _ := cmd.Flags().GetString("parent")
		description, _ := cmd.Flags().GetString("description")
		color, _ := cmd.Flags().GetString("color")
		icon, _ := cmd.Flags().GetString("icon")
		createdBy, _ := cmd.Flags().GetString("created-by")

		term, err := openTermStore().CreateTerm(args[0], parent, category, description, color, icon, createdBy)
		if err != nil {
			return err
		}
		fmt.Printf("Term created: %s (%s)\nID: %s\nCategory: %s\n", term.Term, term.Status, term.TermID, term.Category)
		return nil
	},
}

var taxonomyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List taxonomy terms",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		parent, _ := cmd.Flags().GetString("parent")
		status, _ := cmd.Flags().GetString("status")
		terms, err := openTermStore().ListTerms(category, parent, status)
		if err != nil {
			return err
		}
		for _, t := range terms {
			fmt.Printf("%s\t%s\t%s\t%d\n", t.TermID, t.Category, t.Status, t.UsageCount)
		}
		return nil
	},
}

var taxonomyGetCmd = &cobra.Command{
	Use:   "get TERM_ID",
	Short: "Show one taxonomy term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term, err := openTermStore().GetTerm(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\t%d\n", term.TermID, term.Category, term.Status, term.UsageCount)
		return nil
	},
}

var taxonomyDeleteCmd = &cobra.Command{
	Use:   "delete TERM_ID",
	Short: "Delete a taxonomy term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return openTermStore().DeleteTerm(args[0], force)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
