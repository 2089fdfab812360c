// Package cli implements the interactive console: live tables of the observed
// world and runtime counters.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"github.com/riftwatch/riftwatch/internal/dispatch"
	"github.com/riftwatch/riftwatch/internal/events"
	"github.com/riftwatch/riftwatch/internal/publish"
	"github.com/riftwatch/riftwatch/internal/world"
)

// CLI provides an interactive command-line interface.
type CLI struct {
	world      *world.Registry
	eventBus   *events.EventBus
	dispatcher *dispatch.Dispatcher
	pipeline   *publish.Pipeline

	in  io.Reader
	out io.Writer
}

// NewCLI creates a new CLI handler reading commands from in.
func NewCLI(reg *world.Registry, eventBus *events.EventBus, d *dispatch.Dispatcher, p *publish.Pipeline, in io.Reader, out io.Writer) *CLI {
	return &CLI{
		world:      reg,
		eventBus:   eventBus,
		dispatcher: d,
		pipeline:   p,
		in:         in,
		out:        out,
	}
}

// Start runs the command loop until ctx is cancelled, input ends or the user
// quits.
func (c *CLI) Start(ctx context.Context) {
	fmt.Fprintln(c.out, "\nRiftwatch CLI ready. Type 'help' for available commands.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn().Err(err).Str("component", "cli").Msg("input closed")
		}
	}()

	for {
		fmt.Fprint(c.out, "riftwatch> ")
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if c.execute(ctx, line) {
				return
			}
		}
	}
}

// execute runs one command line and reports whether the loop should end.
func (c *CLI) execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case "help", "h", "?":
		c.printHelp()
	case "status", "s":
		c.printStatus()
	case "players", "p":
		c.printPlayers()
	case "mobs", "m":
		c.printMobs()
	case "dungeons", "d":
		c.printDungeons()
	case "wisps", "w":
		c.printWisps()
	case "clear":
		c.world.ClearAll()
		fmt.Fprintln(c.out, "World registry cleared")
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Shutting down Riftwatch...")
		c.eventBus.Emit(ctx, events.Event{
			Type:   events.EventShutdown,
			Source: "cli",
		})
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: '%s'. Type 'help' for available commands.\n", parts[0])
	}
	return false
}

func (c *CLI) printHelp() {
	fmt.Fprintln(c.out, `
  status     Show location, store sizes and counters
  players    List players in view
  mobs       List mobs in view
  dungeons   List dungeons in view
  wisps      List gated wisps in view
  clear      Empty the world registry
  quit       Shutdown Riftwatch
  help       Show this help message`)
}

func (c *CLI) table(header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(c.out)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	return tw
}

func (c *CLI) printStatus() {
	loc := c.world.Location()
	counts := c.world.Counts()

	tw := c.table("Metric", "Value")
	tw.Append([]string{"Region", loc.Region})
	tw.Append([]string{"Cluster", orDash(loc.Cluster)})
	tw.Append([]string{"Players", fmt.Sprint(counts.Players)})
	tw.Append([]string{"Mobs", fmt.Sprint(counts.Mobs)})
	tw.Append([]string{"Dungeons", fmt.Sprint(counts.Dungeons)})
	tw.Append([]string{"Wisps", fmt.Sprint(counts.Wisps)})
	tw.Append([]string{"Movements", fmt.Sprint(counts.Movements)})

	if c.dispatcher != nil {
		s := c.dispatcher.Stats()
		tw.Append([]string{"Messages received", fmt.Sprint(s.Received)})
		tw.Append([]string{"Messages dispatched", fmt.Sprint(s.Dispatched)})
		tw.Append([]string{"Decode errors", fmt.Sprint(s.DecodeErrors)})
		tw.Append([]string{"Handler faults", fmt.Sprint(s.HandlerFaults)})
	}
	if c.pipeline != nil {
		s := c.pipeline.Stats()
		tw.Append([]string{"Contracts published", fmt.Sprint(s.Published)})
		tw.Append([]string{"Publish failures", fmt.Sprint(s.Failed)})
	}
	tw.Render()
}

func (c *CLI) printPlayers() {
	tw := c.table("ID", "Name", "Guild", "Alliance", "Tier", "X", "Y")
	for _, p := range c.world.Players.Snapshot() {
		tw.Append([]string{
			fmt.Sprint(p.ID),
			p.Name,
			orDash(p.Guild),
			orDash(p.Alliance),
			fmt.Sprint(p.Tier),
			coord(p.Position.X),
			coord(p.Position.Y),
		})
	}
	tw.Render()
}

func (c *CLI) printMobs() {
	tw := c.table("ID", "Type", "Name", "Tier", "Health", "X", "Y")
	for _, m := range c.world.Mobs.Snapshot() {
		name, tier := "-", "-"
		if m.Info != nil {
			name, tier = m.Info.Name, fmt.Sprint(m.Info.Tier)
		}
		tw.Append([]string{
			fmt.Sprint(m.ID),
			fmt.Sprint(m.TypeID),
			name,
			tier,
			fmt.Sprintf("%.0f", m.Health),
			coord(m.Position.X),
			coord(m.Position.Y),
		})
	}
	tw.Render()
}

func (c *CLI) printDungeons() {
	tw := c.table("ID", "Type", "Charges", "X", "Y")
	for _, d := range c.world.Dungeons.Snapshot() {
		tw.Append([]string{
			fmt.Sprint(d.ID),
			d.Type,
			fmt.Sprint(d.Charges),
			coord(d.Position.X),
			coord(d.Position.Y),
		})
	}
	tw.Render()
}

func (c *CLI) printWisps() {
	tw := c.table("ID", "X", "Y")
	for _, w := range c.world.Wisps.Snapshot() {
		tw.Append([]string{fmt.Sprint(w.ID), coord(w.Position.X), coord(w.Position.Y)})
	}
	tw.Render()
}

func coord(v float32) string {
	return fmt.Sprintf("%.1f", v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
