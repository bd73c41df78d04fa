package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"playlistomatic/internal/config"
	"playlistomatic/internal/integrations/youtube"
	"playlistomatic/internal/schedule"
	"playlistomatic/internal/storage/sqlite"
)

var errMissingCategoryList = errors.New("please provide a path to the category list file")
var errMissingWatchlist = errors.New("please provide a path to the watchlist file")
var errMissingCategorized = errors.New("please provide a path to the categorized list file")

type rootFlags struct {
	render          bool
	ollama          bool
	youtubePlaylist bool
	category        string
}

func newRootCmd(cfg config.Config) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:   "playlist-o-matic [options] <categoryListPath> <watchlistPath>",
		Short: "Sort a video watchlist into categories with an LLM and turn them into playlists.",
		Example: `  playlist-o-matic ./data/categories.txt ./data/WL.json
  playlist-o-matic --render ./data/watchlistCategory.json
  playlist-o-matic ./data/categories.txt ./data/WL.json --ollama
  playlist-o-matic --render ./data/watchlistCategory.json --youtubePlaylist --category music`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.ollama {
				cfg.LLMProvider = config.ProviderOllama
			}
			opts := runOptions{playlists: flags.youtubePlaylist, category: flags.category}

			if flags.render {
				if len(args) < 1 {
					return errMissingCategorized
				}
				return runRender(cmd.Context(), cfg, args[0], opts)
			}
			if len(args) < 1 {
				return errMissingCategoryList
			}
			if len(args) < 2 {
				return errMissingWatchlist
			}
			_, err := runClassify(cmd.Context(), cfg, args[0], args[1], opts)
			return err
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetHelpCommand(&cobra.Command{Hidden: true})

	root.Flags().BoolVarP(&flags.render, "render", "r", false, "Render categories from a previously categorized list")
	root.Flags().BoolVarP(&flags.ollama, "ollama", "o", false, "Use Ollama instead of the configured provider")
	root.Flags().BoolVarP(&flags.youtubePlaylist, "youtubePlaylist", "y", false, "Create YouTube playlists for categories")
	root.Flags().StringVarP(&flags.category, "category", "c", "", "Only create the playlist for this category")

	root.AddCommand(
		newChannelsCmd(cfg),
		newFeedCmd(),
		newHistoryCmd(cfg),
		newScheduleCmd(cfg),
		newAuthURLCmd(cfg),
		newAuthCmd(cfg),
	)
	return root
}

func newChannelsCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "channels <watchlistPath>",
		Short: "Merge the watchlist's channels into the channel table.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := loadWatchlist(args[0])
			if err != nil {
				return err
			}
			rows, err := refreshChannels(cfg, items)
			if err != nil {
				return err
			}
			printChannels(rows)
			return nil
		},
	}
}

func newFeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed <playlistID> <outputPath>",
		Short: "Write a watchlist file from a public playlist feed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := runFeed(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printInfo(fmt.Sprintf("Wrote %d items to %s", n, args[1]))
			return nil
		},
	}
}

func newHistoryCmd(cfg config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent classification runs and failures.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqlite.InitDB(cfg.HistoryDBPath)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer db.Close()
			runs, err := sqlite.GetRunStats(db, limit)
			if err != nil {
				return err
			}
			failures, err := sqlite.GetRecentFailures(db, limit)
			if err != nil {
				return err
			}
			printHistory(runs, failures)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs and failures to show")
	return cmd
}

func newScheduleCmd(cfg config.Config) *cobra.Command {
	var flags rootFlags
	cmd := &cobra.Command{
		Use:   "schedule <categoryListPath> <watchlistPath>",
		Short: "Rerun classification on classify_schedule until interrupted.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.ollama {
				cfg.LLMProvider = config.ProviderOllama
			}
			opts := runOptions{playlists: flags.youtubePlaylist, category: flags.category}
			err := schedule.Run(cmd.Context(), cfg, func(ctx context.Context) error {
				_, err := runClassify(ctx, cfg, args[0], args[1], opts)
				return err
			})
			if errors.Is(err, context.Canceled) {
				log.Printf("schedule stopped")
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&flags.ollama, "ollama", "o", false, "Use Ollama instead of the configured provider")
	cmd.Flags().BoolVarP(&flags.youtubePlaylist, "youtubePlaylist", "y", false, "Create YouTube playlists after each run")
	cmd.Flags().StringVarP(&flags.category, "category", "c", "", "Only create the playlist for this category")
	return cmd
}

func newAuthURLCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url",
		Short: "Print the Google consent URL that yields a refresh token.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOAuthClient(cfg); err != nil {
				return err
			}
			printInfo(youtube.AuthURL(cfg))
			return nil
		},
	}
}

func newAuthCmd(cfg config.Config) *cobra.Command {
	var envPath string
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain a YouTube refresh token and save it as REFRESH_TOKEN.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd.Context(), cfg, envPath)
		},
	}
	cmd.Flags().StringVar(&envPath, "env-file", ".env", "Dotenv file that receives the refresh token")
	return cmd
}
