package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Search   key.Binding
	NearBuy  key.Binding
	NearSell key.Binding
	Refresh  key.Binding
	Tab      key.Binding
	Logout   key.Binding
	Help     key.Binding
	Quit     key.Binding
	Cancel   key.Binding
	Accept   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		NearBuy:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "near buy")),
		NearSell: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "near sell")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "watchlist/alerts")),
		Logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear search")),
		Accept:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply search")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.NearBuy, k.NearSell, k.Tab, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Accept, k.Cancel},
		{k.NearBuy, k.NearSell, k.Refresh},
		{k.Tab, k.Logout, k.Help, k.Quit},
	}
}
