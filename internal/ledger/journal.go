package ledger

// journal records an undo step for every state mutation made during a
// transaction so a failing call frame can be rolled back to its snapshot.
type journal struct {
	undo []func()
}

func (j *journal) append(fn func()) {
	j.undo = append(j.undo, fn)
}

func (j *journal) snapshot() int {
	return len(j.undo)
}

// revertTo undoes every step recorded after snapshot id, newest first.
func (j *journal) revertTo(id int) {
	for i := len(j.undo) - 1; i >= id; i-- {
		j.undo[i]()
	}
	j.undo = j.undo[:id]
}

func (j *journal) reset() {
	j.undo = j.undo[:0]
}
