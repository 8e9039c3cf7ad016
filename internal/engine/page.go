package engine

import (
	"sync"

	"github.com/DoyleJ11/underground-client/pkg/types"
)

type Page string

const (
	PageLobby     Page = "lobby"
	PageRoom      Page = "room"
	PageGameStart Page = "game-start"
	PageFrontPage Page = "front-page"
	PageVote      Page = "vote"
	PageMission   Page = "mission"
	PageSkill     Page = "skill"
	PageGameEnd   Page = "game-end"
	PageExit      Page = "exit"
)

var Pages = []Page{PageLobby, PageRoom, PageGameStart, PageFrontPage, PageVote, PageMission, PageSkill, PageGameEnd, PageExit}

func ParsePage(s string) (Page, bool) {
	for _, p := range Pages {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

type Navigation struct {
	Page    Page
	RoomID  string
	GameEnd *types.GameEnd
}

// Navigator hands out exactly one Navigation. Timers, broadcasts and the
// player can all race to leave a page; only the first one counts.
type Navigator struct {
	once sync.Once
	done chan struct{}
	nav  Navigation
}

func NewNavigator() *Navigator {
	return &Navigator{done: make(chan struct{})}
}

// Go records nav if nothing has navigated yet and reports whether it won.
func (n *Navigator) Go(nav Navigation) bool {
	won := false
	n.once.Do(func() {
		n.nav = nav
		won = true
		close(n.done)
	})
	return won
}

// Done is closed once a navigation has been recorded.
func (n *Navigator) Done() <-chan struct{} { return n.done }

// Result returns the winning navigation. Only valid after Done is closed.
func (n *Navigator) Result() Navigation {
	<-n.done
	return n.nav
}
