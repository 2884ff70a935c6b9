package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"arena/internal/history"
	"arena/internal/logging"
	"arena/internal/services"
	"arena/internal/session"
	"arena/internal/transport"
)

const reviewHelp = `Commands:
  status                    show the current case and transport
  play | pause | toggle     control playback of every slot together
  seek <seconds>            move every slot to the same time
  rate <speed>              set the playback rate (kept across cases)
  mute | unmute
  reset                     pause and rewind every slot
  score <slot> <0|0.5|1>    rate a slot
  amazing <slot>            toggle the amazing flag of a slot
  note <slot> <text>        attach a note to a slot
  rep                       toggle the representative flag
  vote <slot>|tie           record the decision and move on
  next | prev               move without voting
  summary                   show the running tally
  quit                      end the review`

// draft holds the reviewer's annotations for the case on screen until the
// vote is recorded.
type draft struct {
	ratings        map[string]session.Rating
	representative bool
	shownAt        time.Time
}

// reviewer drives the line-oriented review loop.
type reviewer struct {
	ctx      context.Context
	in       io.Reader
	out      io.Writer
	ws       *workspace
	ctrl     *transport.Controller
	history  *history.Store
	now      func() time.Time
	colorize bool

	index int
	draft draft
}

func newReviewer(ctx context.Context, in io.Reader, out io.Writer, ws *workspace, ctrl *transport.Controller, store *history.Store) *reviewer {
	return &reviewer{
		ctx:      ctx,
		in:       in,
		out:      out,
		ws:       ws,
		ctrl:     ctrl,
		history:  store,
		now:      time.Now,
		colorize: shouldColorize(out),
	}
}

// run reads commands until quit, end of input, or every case has a vote.
func (r *reviewer) run() error {
	first, ok, err := r.nextUnvoted(0)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(r.out, "Every case already has a vote")
		return nil
	}
	if err := r.show(first); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r.in)
	r.prompt()
	for scanner.Scan() {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		done, err := r.handle(scanner.Text())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			fmt.Fprintln(r.out, renderStatusLine("Error", statusError, services.Describe(err), r.colorize))
		}
		if done {
			return nil
		}
		r.prompt()
	}
	return scanner.Err()
}

func (r *reviewer) prompt() {
	fmt.Fprintf(r.out, "arena [%d/%d]> ", r.index+1, len(r.ws.cases()))
}

func (r *reviewer) handle(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	command, args := strings.ToLower(fields[0]), fields[1:]
	switch command {
	case "help", "?":
		fmt.Fprintln(r.out, reviewHelp)
	case "status":
		r.printStatus()
	case "play":
		return false, r.transport(r.ctrl.Play)
	case "pause":
		return false, r.transport(r.ctrl.Pause)
	case "toggle":
		return false, r.transport(r.ctrl.TogglePlay)
	case "reset":
		return false, r.transport(r.ctrl.Reset)
	case "seek":
		return false, r.seek(args)
	case "rate":
		return false, r.rate(args)
	case "mute", "unmute":
		r.ctrl.SetMuted(command == "mute")
		fmt.Fprintf(r.out, "Muted: %s\n", yesNo(r.ctrl.Muted()))
	case "score":
		return false, r.score(args)
	case "amazing":
		return false, r.amazing(args)
	case "note":
		return false, r.note(args)
	case "rep":
		r.draft.representative = !r.draft.representative
		fmt.Fprintf(r.out, "Representative: %s\n", yesNo(r.draft.representative))
	case "vote":
		return r.vote(args)
	case "next":
		return false, r.move(1)
	case "prev":
		return false, r.move(-1)
	case "summary":
		results, err := r.history.List(r.ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, renderSummary(r.ws.session.Variants, results))
	case "quit", "exit", "q":
		return true, nil
	default:
		return false, services.Wrap(services.ErrValidation, "review", "command", fmt.Sprintf("unknown command %q (try help)", command), nil)
	}
	return false, nil
}

func (r *reviewer) show(index int) error {
	tc := r.ws.cases()[index]
	if err := r.ctrl.SetCase(r.ctx, tc); err != nil {
		return err
	}
	r.index = index
	r.draft = draft{ratings: make(map[string]session.Rating), shownAt: r.now()}

	voted, err := r.history.Voted(r.ctx, tc.ID)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("Case %d/%d: %s", index+1, len(r.ws.cases()), tc.Name)
	if voted {
		header += " (voted)"
	}
	fmt.Fprintln(r.out, strings.Join(renderSectionHeader(header, r.colorize), "\n"))
	for _, slot := range r.ctrl.Slots() {
		fmt.Fprintln(r.out, r.slotLine(slot))
	}
	return nil
}

func (r *reviewer) slotLine(slot transport.Slot) string {
	label := fmt.Sprintf("[%d] %s", slot.Index+1, slot.Label)
	if !slot.Loaded() {
		return renderStatusLine(label, statusWarn, "no source", r.colorize)
	}
	detail := slot.Color
	if !r.ws.session.Blind {
		detail = slot.Source.Name() + " " + slot.Color
	}
	return renderStatusLine(label, statusOK, detail, r.colorize)
}

func (r *reviewer) printStatus() {
	tc, ok := r.ctrl.Case()
	if !ok {
		fmt.Fprintln(r.out, "No case loaded")
		return
	}
	fmt.Fprintf(r.out, "Case:   %s\n", tc.Name)
	if r.ctrl.HasTransport() {
		fmt.Fprintf(r.out, "State:  %s\n", r.ctrl.State())
		fmt.Fprintf(r.out, "Time:   %.1fs / %.1fs\n", r.ctrl.CurrentTime(), r.ctrl.Duration())
		fmt.Fprintf(r.out, "Rate:   %gx  Muted: %s\n", r.ctrl.Rate(), yesNo(r.ctrl.Muted()))
	}
	for _, slot := range r.ctrl.Slots() {
		fmt.Fprintln(r.out, r.slotLine(slot))
		if rating, ok := r.draft.ratings[slot.VariantID]; ok {
			line := fmt.Sprintf("      score %g", rating.Score)
			if rating.Amazing {
				line += ", amazing"
			}
			if rating.Note != "" {
				line += fmt.Sprintf(", note %q", rating.Note)
			}
			fmt.Fprintln(r.out, line)
		}
	}
	fmt.Fprintf(r.out, "Representative: %s\n", yesNo(r.draft.representative))
}

func (r *reviewer) transport(fn func() error) error {
	if !r.ctrl.HasTransport() {
		fmt.Fprintln(r.out, "Image cases have no playback controls")
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "State: %s\n", r.ctrl.State())
	return nil
}

func (r *reviewer) seek(args []string) error {
	if len(args) != 1 {
		return usageError("seek <seconds>")
	}
	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil || math.IsNaN(seconds) {
		return usageError("seek <seconds>")
	}
	if !r.ctrl.HasTransport() {
		fmt.Fprintln(r.out, "Image cases have no playback controls")
		return nil
	}
	target, err := r.ctrl.Seek(seconds)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Time: %.1fs / %.1fs\n", target, r.ctrl.Duration())
	return nil
}

func (r *reviewer) rate(args []string) error {
	if len(args) != 1 {
		return usageError("rate <speed>")
	}
	rate, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "x"), 64)
	if err != nil {
		return usageError("rate <speed>")
	}
	if err := r.ctrl.SetRate(rate); err != nil {
		return services.Wrap(services.ErrValidation, "review", "rate", "", err)
	}
	fmt.Fprintf(r.out, "Rate: %gx\n", r.ctrl.Rate())
	return nil
}

func (r *reviewer) score(args []string) error {
	if len(args) != 2 {
		return usageError("score <slot> <0|0.5|1>")
	}
	variantID, err := r.slotVariant(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return usageError("score <slot> <0|0.5|1>")
	}
	rating := r.draft.ratings[variantID]
	rating.Score = value
	if err := rating.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "review", "score", "", err)
	}
	r.draft.ratings[variantID] = rating
	fmt.Fprintf(r.out, "Slot %s score: %g\n", args[0], value)
	return nil
}

func (r *reviewer) amazing(args []string) error {
	if len(args) != 1 {
		return usageError("amazing <slot>")
	}
	variantID, err := r.slotVariant(args[0])
	if err != nil {
		return err
	}
	rating := r.draft.ratings[variantID]
	rating.Amazing = !rating.Amazing
	r.draft.ratings[variantID] = rating
	fmt.Fprintf(r.out, "Slot %s amazing: %s\n", args[0], yesNo(rating.Amazing))
	return nil
}

func (r *reviewer) note(args []string) error {
	if len(args) < 2 {
		return usageError("note <slot> <text>")
	}
	variantID, err := r.slotVariant(args[0])
	if err != nil {
		return err
	}
	rating := r.draft.ratings[variantID]
	rating.Note = strings.Join(args[1:], " ")
	r.draft.ratings[variantID] = rating
	fmt.Fprintf(r.out, "Slot %s note saved\n", args[0])
	return nil
}

func (r *reviewer) vote(args []string) (bool, error) {
	if len(args) != 1 {
		return false, usageError("vote <slot>|tie")
	}
	winner := session.Tie
	if !strings.EqualFold(args[0], "tie") {
		variantID, err := r.slotVariant(args[0])
		if err != nil {
			return false, err
		}
		winner = variantID
	}

	tc, ok := r.ctrl.Case()
	if !ok {
		return false, transport.ErrNoCase
	}
	now := r.now()
	result := session.VoteResult{
		CaseID:         tc.ID,
		CaseName:       tc.Name,
		Timestamp:      now,
		Winner:         winner,
		Ratings:        maps.Clone(r.draft.ratings),
		Duration:       math.Round(now.Sub(r.draft.shownAt).Seconds()*1000) / 1000,
		Representative: r.draft.representative,
	}
	if err := r.history.Append(r.ctx, result); err != nil {
		if errors.Is(err, history.ErrDuplicateVote) {
			return false, services.Wrap(services.ErrValidation, "review", "vote", fmt.Sprintf("case %s already has a vote", tc.Name), nil)
		}
		return false, err
	}
	r.ws.logger.Info("vote recorded",
		logging.String(logging.FieldEventType, "vote_recorded"),
		logging.String(logging.FieldCaseID, tc.ID),
		logging.String("winner", winner),
		logging.Bool("representative", result.Representative),
	)
	fmt.Fprintln(r.out, renderStatusLine("Vote", statusOK, r.winnerText(winner), r.colorize))

	next, ok, err := r.nextUnvoted(r.index + 1)
	if err != nil {
		return false, err
	}
	if !ok {
		fmt.Fprintln(r.out, "Every case has a vote")
		return true, nil
	}
	return false, r.show(next)
}

// winnerText names the winner. Blind reviews reveal the variant behind the
// slot only once the vote is recorded.
func (r *reviewer) winnerText(winner string) string {
	if winner == session.Tie {
		return "tie"
	}
	variant, _ := r.ws.session.Variant(winner)
	if pos, ok := r.ctrl.Layout().PositionOf(winner); ok && r.ws.session.Blind {
		return fmt.Sprintf("%s was %s", pos.Label, variant.Name)
	}
	return variant.Name
}

func (r *reviewer) move(step int) error {
	target := r.index + step
	if target < 0 || target >= len(r.ws.cases()) {
		return services.Wrap(services.ErrValidation, "review", "navigate", "no more cases in that direction", nil)
	}
	return r.show(target)
}

// nextUnvoted finds the first case without a vote at or after from,
// wrapping around to the start of the queue.
func (r *reviewer) nextUnvoted(from int) (int, bool, error) {
	cases := r.ws.cases()
	total := len(cases)
	for i := range total {
		index := (from + i) % total
		voted, err := r.history.Voted(r.ctx, cases[index].ID)
		if err != nil {
			return 0, false, err
		}
		if !voted {
			return index, true, nil
		}
	}
	return 0, false, nil
}

func (r *reviewer) slotVariant(value string) (string, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return "", usageError("slots are numbered from 1")
	}
	positions := r.ctrl.Layout().Positions
	if n < 1 || n > len(positions) {
		return "", services.Wrap(services.ErrValidation, "review", "slot", fmt.Sprintf("slot %d does not exist (1-%d)", n, len(positions)), nil)
	}
	return positions[n-1].VariantID, nil
}

func usageError(usage string) error {
	return services.Wrap(services.ErrValidation, "review", "usage", usage, nil)
}
