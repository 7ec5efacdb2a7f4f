package dom

import "golang.org/x/net/html"

// MutationRecord describes one change to the children of Target.
type MutationRecord struct {
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
}

// MutationCallback receives a batch of records.
type MutationCallback func(records []MutationRecord)

// Observer receives child-list mutations made anywhere in the subtree of
// the node it observes.
type Observer struct {
	doc      *Document
	root     *html.Node
	callback MutationCallback
	records  []MutationRecord
	active   bool
}

// Observe starts watching the subtree of root. Records are delivered in a
// microtask after the task that produced them.
func (d *Document) Observe(root *html.Node, callback MutationCallback) *Observer {
	o := &Observer{doc: d, root: root, callback: callback, active: true}
	d.observers = append(d.observers, o)
	return o
}

// Disconnect stops the observer. Records not yet delivered are dropped.
func (o *Observer) Disconnect() {
	if !o.active {
		return
	}
	o.active = false
	o.records = nil

	observers := o.doc.observers[:0]
	for _, other := range o.doc.observers {
		if other != o {
			observers = append(observers, other)
		}
	}
	o.doc.observers = observers
}

// TakeRecords returns and clears the records queued for o.
func (o *Observer) TakeRecords() []MutationRecord {
	records := o.records
	o.records = nil
	return records
}

func (d *Document) record(rec MutationRecord) {
	queued := false
	for _, o := range d.observers {
		if Contains(o.root, rec.Target) {
			o.records = append(o.records, rec)
			queued = true
		}
	}
	if !queued {
		return
	}

	if d.loop == nil {
		d.deliver()
		return
	}
	if !d.deliveryPending {
		d.deliveryPending = true
		d.loop.QueueMicrotask(d.deliver)
	}
}

func (d *Document) deliver() {
	d.deliveryPending = false

	observers := make([]*Observer, len(d.observers))
	copy(observers, d.observers)
	for _, o := range observers {
		if !o.active {
			continue
		}
		if records := o.TakeRecords(); len(records) > 0 {
			o.callback(records)
		}
	}
}
