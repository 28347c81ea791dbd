package layout

// Observer is notified after every completed step.
type Observer interface {
	OnStep(s Snapshot)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(s Snapshot)

func (f ObserverFunc) OnStep(s Snapshot) { f(s) }

func (st *State) AddObserver(o Observer) { st.observers = append(st.observers, o) }

func (st *State) notify() {
	if len(st.observers) == 0 {
		return
	}
	snap := st.Snapshot()
	for _, o := range st.observers {
		o.OnStep(snap)
	}
}
