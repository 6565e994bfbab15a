package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"socialsim/pkg/jobs"
	"socialsim/pkg/media"
	"socialsim/pkg/persona"
	"socialsim/pkg/sim"
	"socialsim/pkg/world"
)

func newPersonasCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the cast",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return printPersonas(cmd.OutOrStdout(), a.catalog)
		},
	}
}

func printPersonas(w io.Writer, catalog *persona.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tGROUP\tAGE\tKIND")
	for _, p := range catalog.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.Key, p.Name, p.Group, p.Age, p.Kind)
	}
	return tw.Flush()
}

func newStartCmd(opts *rootOptions) *cobra.Command {
	var age int
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Create a profile for --user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.engine.CreateProfile(cmd.Context(), opts.userID, age)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile created for %s (%s).\n", st.UserID, st.UserRole)
			return nil
		},
	}
	cmd.Flags().IntVar(&age, "age", 0, "your age")
	_ = cmd.MarkFlagRequired("age")
	return cmd
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <persona>",
		Short: "Text a persona from the terminal",
		Long: `Opens an interactive conversation. Each line you type is one message.

In-chat commands:
  /photo <id>   save a photo the persona promised
  /quit         leave the conversation`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.chat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts.userID, args[0])
		},
	}
}

func (a *app) chat(ctx context.Context, in io.Reader, out io.Writer, userID, key string) error {
	opened, err := a.engine.Open(ctx, userID, key, a.now())
	if err != nil {
		return explain(err)
	}
	name := opened.Persona.Name

	switch {
	case opened.Blocked:
		fmt.Fprintf(out, "(%s has blocked you. Try: socialsim apologize %s \"...\")\n", name, key)
	case opened.Reachable:
		fmt.Fprintf(out, "(texting %s, %s)\n", name, opened.Reading)
	default:
		fmt.Fprintf(out, "(%s isn't around right now, %s. They'll see your messages later.)\n", name, opened.Reading)
	}
	if l := opened.LastLine; l != nil && l.Role != world.RoleSystem {
		speaker := "you"
		if l.Role == world.RoleModel {
			speaker = name
		}
		fmt.Fprintf(out, "last message, %s: %s\n", speaker, l.Text)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/photo"):
			a.savePhoto(out, strings.TrimSpace(strings.TrimPrefix(line, "/photo")))
			continue
		}

		res, err := a.engine.Send(ctx, userID, key, line, a.now())
		if err != nil {
			return explain(err)
		}
		printTurn(out, name, res)
	}
}

func printTurn(out io.Writer, name string, res *sim.TurnResult) {
	switch res.Outcome {
	case sim.OutcomeBlocked:
		fmt.Fprintf(out, "(%s has blocked you)\n", name)
		return
	case sim.OutcomeAway:
		if res.Reply == "" {
			fmt.Fprintf(out, "(%s is offline)\n", name)
			return
		}
		fmt.Fprintf(out, "%s: %s\n(%s went offline)\n", name, res.Reply, name)
		return
	}

	if res.DelaySeconds > 0 {
		fmt.Fprintf(out, "(%s replied after %ds)\n", name, res.DelaySeconds)
	}
	if res.Reply != "" {
		fmt.Fprintf(out, "%s: %s\n", name, res.Reply)
	}
	if res.Transition.Changed() {
		fmt.Fprintf(out, "(%d -> %d, %s)\n", res.Transition.From, res.Transition.To, strings.ReplaceAll(string(res.Transition.ToTier), "_", " "))
	}
	if res.Transition.Blocked {
		fmt.Fprintf(out, "(%s blocked you)\n", name)
	}
	for _, b := range res.Breakups {
		fmt.Fprintf(out, "(%s and %s broke up)\n", b.Persona, b.Ex)
	}
	if len(res.CaughtBy) > 0 {
		fmt.Fprintf(out, "(caught cheating by %s)\n", strings.Join(res.CaughtBy, ", "))
	}
	if len(res.GossipedTo) > 0 {
		fmt.Fprintf(out, "(word got around to %s)\n", strings.Join(res.GossipedTo, ", "))
	}
	if res.ImageJobID != "" {
		fmt.Fprintf(out, "(%s is taking a photo: /photo %s)\n", name, res.ImageJobID)
	}
}

// savePhoto writes a finished photo next to the working directory.
func (a *app) savePhoto(out io.Writer, id string) {
	snap, err := a.engine.PollImage(id)
	if errors.Is(err, jobs.ErrNotFound) {
		fmt.Fprintln(out, "(no photo with that id)")
		return
	}
	switch snap.Status {
	case jobs.StatusPending:
		fmt.Fprintln(out, "(still taking it)")
	case jobs.StatusDone:
		path := "photo-" + id + media.Extension(snap.Result.MIMEType)
		if err := os.WriteFile(path, snap.Result.Data, 0o644); err != nil {
			fmt.Fprintf(out, "(couldn't save photo: %v)\n", err)
			return
		}
		fmt.Fprintf(out, "(saved %s)\n", path)
	default:
		fmt.Fprintf(out, "(photo %s)\n", snap.Status)
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where --user stands with everyone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			roster, err := a.engine.Status(cmd.Context(), opts.userID, a.now())
			if err != nil {
				return explain(err)
			}
			return printRoster(cmd.OutOrStdout(), roster)
		},
	}
}

func printRoster(w io.Writer, roster []sim.RosterEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCORE\tTIER\tONLINE\tNOTES")
	for _, r := range roster {
		score, tier := "-", "-"
		if r.HasScore {
			score = fmt.Sprintf("%d", r.Score)
			tier = strings.ReplaceAll(string(r.Tier), "_", " ")
		}
		online := "no"
		if r.Reachable {
			online = "yes"
		}
		var notes []string
		if r.Blocked {
			notes = append(notes, "blocked you")
		}
		switch r.Dating {
		case "":
		case world.UserPlayer:
			notes = append(notes, "dating you")
		default:
			notes = append(notes, "dating "+r.Dating)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, score, tier, online, strings.Join(notes, ", "))
	}
	return tw.Flush()
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start the social world over for --user, keeping transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.Reset(cmd.Context(), opts.userID); err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "World reset.")
			return nil
		},
	}
}

func newApologizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apologize <persona> <text...>",
		Short: "Apologize to a persona who blocked you",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Apologize(cmd.Context(), opts.userID, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return explain(err)
			}
			p, _ := a.catalog.Get(args[0])
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", p.Name, res.Reply)
			if res.Accepted {
				fmt.Fprintf(out, "(unblocked, score %d)\n", res.Score)
			} else {
				fmt.Fprintln(out, "(still blocked)")
			}
			return nil
		},
	}
}

// explain turns engine sentinels into operator-facing errors.
func explain(err error) error {
	switch {
	case errors.Is(err, sim.ErrUnknownUser):
		return fmt.Errorf("no profile for this user, run `socialsim start --age N` first: %w", err)
	case errors.Is(err, sim.ErrUnknownPersona):
		return fmt.Errorf("no such persona, see `socialsim personas`: %w", err)
	}
	return err
}
