// cmd/dartkeeper/main.go is a line-oriented console for scoring a match at the
// board without the HTTP server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jason-s-yu/dartkeeper/internal/backend"
	"github.com/jason-s-yu/dartkeeper/internal/config"
	"github.com/jason-s-yu/dartkeeper/internal/game"
	"github.com/jason-s-yu/dartkeeper/internal/models"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

const usage = `commands:
  players                 list registered players
  add <name>              register a player and seat them in a forming match
  remove <player-id>      delete a registered player
  new <type>              create a match: 301, 501, 701 or Around the Clock
  join <player-id>        seat a registered player
  leave <player-id>       remove a player's seats
  start                   start the forming match
  d <segment> [mult]      record a dart (segment 0-20 or 25)
  miss                    record a miss
  x <1|2|3>               select the keypad multiplier
  q <points>              record a quick dart by points
  turn <points>           submit a whole turn for the current player
  reset                   discard the pending turn
  show                    print the board
  history                 list saved matches
  resume <match-id>       resume a saved match
  exit | abandon          leave the active match
  rules [key=value ...]   show or change rules
  wipe                    clear all stored data
  quit`

func main() {
	configPath := flag.String("config", os.Getenv("DARTKEEPER_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	// Console output is the UI; keep the log quiet unless asked.
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil || level > logrus.WarnLevel {
		level = logrus.WarnLevel
	}
	logrus.SetLevel(level)

	ctx := context.Background()
	store, err := backend.OpenStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("storage: %v", err)
	}
	sessions := game.NewSessionStore(backend.NewEngine(cfg), store, logrus.WithField("component", "console"))
	defer sessions.Close()
	if err := sessions.Load(ctx); err != nil {
		logrus.Fatalf("load session: %v", err)
	}

	c := &console{sessions: sessions, out: os.Stdout}
	c.printBoard()
	c.run(ctx, os.Stdin)
}

type console struct {
	sessions *game.SessionStore
	out      io.Writer
}

func (c *console) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(c.out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" {
			return
		}
		if line != "" {
			if err := c.exec(ctx, line); err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
		fmt.Fprint(c.out, "> ")
	}
}

func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprintln(c.out, usage)
		return nil
	case "players":
		for _, p := range c.sessions.Snapshot().RegisteredPlayers {
			fmt.Fprintf(c.out, "%s  %-16s played %d  won %d  avg %d  best %d\n",
				p.ID, p.Name, p.Stats.GamesPlayed, p.Stats.GamesWon, p.Stats.AverageScore, p.Stats.BestScore)
		}
		return nil
	case "add":
		p, err := c.sessions.RegisterPlayer(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "registered %s (%s)\n", p.Name, p.ID)
		return nil
	case "remove":
		if err := need(args, 1); err != nil {
			return err
		}
		return c.sessions.DeletePlayer(ctx, args[0])
	case "new":
		if err := need(args, 1); err != nil {
			return err
		}
		m, err := c.sessions.CreateMatch(ctx, models.GameType(strings.Join(args, " ")))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "match %s created\n", m.ID)
		return nil
	case "join":
		if err := need(args, 1); err != nil {
			return err
		}
		return c.sessions.Enroll(ctx, args[0])
	case "leave":
		if err := need(args, 1); err != nil {
			return err
		}
		return c.sessions.Unenroll(ctx, args[0])
	case "start":
		if err := c.sessions.Start(ctx); err != nil {
			return err
		}
		c.printBoard()
		return nil
	case "d":
		if err := need(args, 1); err != nil {
			return err
		}
		nums, err := ints(args)
		if err != nil {
			return err
		}
		mult := c.sessions.View().Turn.Multiplier
		if len(nums) > 1 {
			mult = nums[1]
		}
		res, err := c.sessions.RecordDart(ctx, nums[0], mult)
		if err != nil {
			return err
		}
		c.printTurn(res)
		return nil
	case "miss":
		res, err := c.sessions.RecordMiss(ctx)
		if err != nil {
			return err
		}
		c.printTurn(res)
		return nil
	case "x":
		nums, err := ints(args)
		if err != nil {
			return err
		}
		if len(nums) != 1 {
			return fmt.Errorf("usage: x <1|2|3>")
		}
		return c.sessions.SelectMultiplier(nums[0])
	case "q":
		nums, err := ints(args)
		if err != nil {
			return err
		}
		if len(nums) != 1 {
			return fmt.Errorf("usage: q <points>")
		}
		res, err := c.sessions.RecordQuickPoints(ctx, nums[0])
		if err != nil {
			return err
		}
		c.printTurn(res)
		return nil
	case "turn":
		nums, err := ints(args)
		if err != nil {
			return err
		}
		if len(nums) != 1 {
			return fmt.Errorf("usage: turn <points>")
		}
		if err := c.sessions.SubmitTurn(ctx, nums[0]); err != nil {
			return err
		}
		c.printBoard()
		return nil
	case "reset":
		return c.sessions.ResetTurn(ctx)
	case "show":
		c.printBoard()
		return nil
	case "history":
		for _, m := range c.sessions.Snapshot().SavedGames {
			state := "unfinished"
			if m.IsFinished {
				state = "won by " + m.WinnerID
			}
			fmt.Fprintf(c.out, "%s  %-4s %d players  %s  %s\n",
				m.ID, m.Type, len(m.Players), m.LastUpdatedAt.Format("2006-01-02 15:04"), state)
		}
		return nil
	case "resume":
		if err := need(args, 1); err != nil {
			return err
		}
		if err := c.sessions.Resume(ctx, args[0]); err != nil {
			return err
		}
		c.printBoard()
		return nil
	case "exit":
		return c.sessions.Exit(ctx)
	case "abandon":
		return c.sessions.Abandon(ctx)
	case "rules":
		return c.rules(ctx, args)
	case "wipe":
		return c.sessions.Clear(ctx)
	}
	return fmt.Errorf("unknown command %q, try help", cmd)
}

func (c *console) rules(ctx context.Context, args []string) error {
	rules := c.sessions.Rules()
	if len(args) > 0 {
		changes := make(map[string]interface{}, len(args))
		for _, arg := range args {
			key, raw, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("expected key=value, got %q", arg)
			}
			if n, err := strconv.Atoi(raw); err == nil {
				// ParseRules takes JSON-shaped values
				changes[key] = float64(n)
			} else if b, err := strconv.ParseBool(raw); err == nil {
				changes[key] = b
			} else {
				changes[key] = raw
			}
		}
		var err error
		if rules, err = c.sessions.UpdateRules(ctx, changes); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.out, "enforceTurnOrder=%t allowDuplicateEnrollment=%t maxSavedGames=%d\n",
		rules.EnforceTurnOrder, rules.AllowDuplicateEnrollment, rules.MaxSavedGames)
	return nil
}

func (c *console) printTurn(res game.TurnResult) {
	marks := make([]string, 0, len(res.Darts))
	for _, d := range res.Darts {
		marks = append(marks, dartLabel(d))
	}
	fmt.Fprintf(c.out, "[%s] %d\n", strings.Join(marks, " "), res.Subtotal)
	if res.Complete {
		c.printBoard()
	}
}

func (c *console) printBoard() {
	v := c.sessions.View()
	if v.Match == nil {
		fmt.Fprintln(c.out, "no active match (type help)")
		return
	}
	fmt.Fprintf(c.out, "%s  %s  %s\n", v.Match.Type, v.Match.Status, v.Match.ID)
	for _, p := range v.Match.Players {
		marker := " "
		if p.IsCurrentTurn {
			marker = "*"
		}
		fmt.Fprintf(c.out, " %s %-16s %4d\n", marker, p.Name, p.RemainingScore)
	}
}

func dartLabel(d models.Dart) string {
	switch {
	case d.IsMiss():
		return "miss"
	case d.Multiplier == 2:
		return "D" + strconv.Itoa(d.Segment)
	case d.Multiplier == 3:
		return "T" + strconv.Itoa(d.Segment)
	}
	return strconv.Itoa(d.Segment)
}

func need(args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("expected %d argument(s)", n)
	}
	return nil
}

func ints(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", a)
		}
		out = append(out, n)
	}
	return out, nil
}
