package phase

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/pkg/types"
)

// ErrQuit is returned when the player asks to leave.
var ErrQuit = errors.New("player quit")

// Prompter asks the player on a terminal. One goroutine owns the reader so
// a question abandoned by a page never steals the next answer's line.
type Prompter struct {
	out   io.Writer
	lines chan string
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{out: out, lines: make(chan string)}
	go p.read(in)
	return p
}

func (p *Prompter) read(in io.Reader) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		p.lines <- sc.Text()
	}
	close(p.lines)
}

func (p *Prompter) ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprintf(p.out, "%s > ", prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		line = strings.TrimSpace(line)
		if line == "q" || line == "quit" {
			return "", ErrQuit
		}
		return line, nil
	}
}

func (p *Prompter) list(items []string) {
	for i, it := range items {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, it)
	}
}

// pick resolves a 1-based index or an exact item.
func pick(items []string, in string) (string, bool) {
	if n, err := strconv.Atoi(in); err == nil {
		if n >= 1 && n <= len(items) {
			return items[n-1], true
		}
		return "", false
	}
	for _, it := range items {
		if it == in {
			return it, true
		}
	}
	return "", false
}

func (p *Prompter) choose(ctx context.Context, prompt string, items []string, allowEmpty bool) (string, error) {
	p.list(items)
	for {
		in, err := p.ask(ctx, prompt)
		if err != nil {
			return "", err
		}
		if in == "" && allowEmpty {
			return "", nil
		}
		if it, ok := pick(items, in); ok {
			return it, nil
		}
		fmt.Fprintln(p.out, "請輸入清單中的編號")
	}
}

func (p *Prompter) PickRoom(ctx context.Context, rooms []types.Room) (string, error) {
	if len(rooms) == 0 {
		_, err := p.ask(ctx, "目前沒有房間，按 Enter 重新整理")
		return "", err
	}
	labels := make([]string, len(rooms))
	for i, r := range rooms {
		labels[i] = fmt.Sprintf("%s (%d/%d)", r.RoomName, len(r.Players), r.PlayerCount)
	}
	label, err := p.choose(ctx, "加入哪個房間？Enter 重新整理", labels, true)
	if err != nil || label == "" {
		return "", err
	}
	for i, l := range labels {
		if l == label {
			return rooms[i].ID, nil
		}
	}
	return "", nil
}

func (p *Prompter) RoomAction(ctx context.Context, room types.Room, canStart bool) (RoomAction, error) {
	prompt := "x 離開，Enter 繼續等待"
	if canStart {
		prompt = "s 開始遊戲，" + prompt
	}
	in, err := p.ask(ctx, prompt)
	if err != nil {
		return ActionWait, err
	}
	switch {
	case in == "s" && canStart:
		return ActionStart, nil
	case in == "x":
		return ActionExit, nil
	}
	return ActionWait, nil
}

func (p *Prompter) Avatar(ctx context.Context, options []string) (string, error) {
	return p.choose(ctx, "選擇頭貼", options, false)
}

func (p *Prompter) Expedition(ctx context.Context, candidates []string, n int) ([]string, error) {
	p.list(candidates)
	for {
		in, err := p.ask(ctx, fmt.Sprintf("請選擇 %d 名出戰人員（以空白分隔）", n))
		if err != nil {
			return nil, err
		}
		var sel []string
		valid := true
		for _, f := range strings.Fields(in) {
			it, ok := pick(candidates, f)
			if !ok {
				valid = false
				break
			}
			sel = append(sel, it)
		}
		if valid {
			if err := engine.ValidateExpedition(sel, n, candidates); err == nil {
				return sel, nil
			}
		}
		fmt.Fprintf(p.out, "請選滿 %d 人！\n", n)
	}
}

func (p *Prompter) Vote(ctx context.Context, expedition []string) (bool, error) {
	for {
		in, err := p.ask(ctx, fmt.Sprintf("出戰名單 %s，同意嗎？[y/n]", strings.Join(expedition, "、")))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(in) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

func (p *Prompter) Card(ctx context.Context, role string) (types.Card, error) {
	for {
		in, err := p.ask(ctx, fmt.Sprintf("(%s) 提交任務卡 [s]成功 / [f]失敗", role))
		if err != nil {
			return "", err
		}
		switch strings.ToLower(in) {
		case "s":
			return types.CardSuccess, nil
		case "f":
			return types.CardFail, nil
		}
	}
}

func (p *Prompter) Target(ctx context.Context, role engine.Role, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}
	return p.choose(ctx, fmt.Sprintf("%s 技能目標，Enter 略過", role), candidates, true)
}

func (p *Prompter) Guesses(ctx context.Context, players []string) (map[string]string, error) {
	out := make(map[string]string, len(players))
	for _, name := range players {
		for {
			in, err := p.ask(ctx, fmt.Sprintf("%s 是 [g]好人 / [e]壞人？", name))
			if err != nil {
				return nil, err
			}
			if in == "g" {
				out[name] = string(engine.FactionGood)
				break
			}
			if in == "e" {
				out[name] = string(engine.FactionEvil)
				break
			}
		}
	}
	return out, nil
}
