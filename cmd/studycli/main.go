package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"connectrpc.com/connect"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	pb "github.com/domino14/flashcard_server/api/rpc/flashcards"
	"github.com/domino14/flashcard_server/internal/srs"
)

type cliOptions struct {
	serverURL string
	token     string
}

// bearerInterceptor attaches the user's JWT to every call.
func bearerInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}

func (o *cliOptions) client() (*pb.FlashcardServiceClient, error) {
	if o.token == "" {
		return nil, errors.New("no token; pass --token or set FLASHCARDS_TOKEN")
	}
	return pb.NewFlashcardServiceClient(http.DefaultClient, o.serverURL,
		connect.WithInterceptors(bearerInterceptor(o.token))), nil
}

// username reads the name out of the token. As the client we don't need to
// (and can't) verify the signature.
func username(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "unknown"
	}
	if usn, ok := claims["usn"].(string); ok && usn != "" {
		return usn
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub
	}
	return "unknown"
}

func printCard(c *pb.Flashcard) {
	next := "now"
	if c.NextReview != nil {
		next = c.NextReview.Local().Format("2006-01-02 15:04")
	}
	fmt.Printf("%s  %-40q reps=%d ease=%.2f interval=%dd next=%s\n",
		c.Id, c.Question, c.Repetitions, c.EaseFactor, c.Interval, next)
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "studycli",
		Short:         "Study flashcards against a flashcard server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultURL := os.Getenv("FLASHCARDS_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8180"
	}
	root.PersistentFlags().StringVar(&opts.serverURL, "server", defaultURL, "flashcard server URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("FLASHCARDS_TOKEN"), "JWT to authenticate with")

	root.AddCommand(
		newAddCmd(opts),
		newDueCmd(opts),
		newReviewCmd(opts),
		newStatsCmd(opts),
		newStudyCmd(opts),
	)
	return root
}

func newAddCmd(opts *cliOptions) *cobra.Command {
	var deck, title, tags string
	cmd := &cobra.Command{
		Use:   "add QUESTION ANSWER",
		Short: "Add a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			req := &pb.CreateFlashcardRequest{
				DeckId:   deck,
				Question: args[0],
				Answer:   args[1],
				Title:    title,
			}
			if tags != "" {
				req.Tags = strings.Split(tags, ",")
			}
			resp, err := client.CreateFlashcard(cmd.Context(), connect.NewRequest(req))
			if err != nil {
				return err
			}
			printCard(resp.Msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&deck, "deck", "", "deck id")
	cmd.Flags().StringVar(&title, "title", "", "card title")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	return cmd
}

func newDueCmd(opts *cliOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List the cards due now",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := client.GetDueCards(cmd.Context(), connect.NewRequest(&pb.GetDueCardsRequest{Limit: limit}))
			if err != nil {
				return err
			}
			for _, c := range resp.Msg.Cards {
				printCard(c)
			}
			fmt.Printf("%d card(s) due\n", resp.Msg.OverdueCount)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of cards (1-100)")
	return cmd
}

func newReviewCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "review CARD_ID RATING",
		Short: "Rate one card: again, hard, good or easy (or 1-4)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := srs.ParseRating(args[1])
			if err != nil {
				return err
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := client.RecordStudyResult(cmd.Context(), connect.NewRequest(&pb.RecordStudyResultRequest{
				CardId: args[0],
				Rating: int(rating),
			}))
			if err != nil {
				return err
			}
			printCard(resp.Msg)
			return nil
		},
	}
}

func newStatsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show study statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := client.GetStudyStats(cmd.Context(), connect.NewRequest(&pb.GetStudyStatsRequest{}))
			if err != nil {
				return err
			}
			st := resp.Msg
			fmt.Printf("today: %d studied, %d correct\n", st.StudiedToday, st.CorrectToday)
			fmt.Printf("total: %d studied, %d correct\n", st.TotalStudied, st.TotalCorrect)
			fmt.Printf("streak: %d day(s)\n", st.Streak)
			return nil
		},
	}
}

func newStudyCmd(opts *cliOptions) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Study due cards interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			p := tea.NewProgram(initialModel(client, username(opts.token), batch))
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 20, "cards fetched at a time")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %v\n", err)
		os.Exit(1)
	}
}
