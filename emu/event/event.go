package event

/*
 * mipscore - Cycle-driven event scheduler
 *
 * Copyright 2024, Richard Cornwell
 * Copyright 2026, mipscore contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package event schedules device callbacks by cycle count rather than wall
// clock time, so that things like the DisplayDevice's transmit delay or the
// TimerDevice's interval are deterministic and replayable: time moves only
// when the queue's owner calls Advance, never by sleeping. The pipeline and
// the core engine do not call Advance.

// Callback is invoked with the same iarg passed to Add when an event's
// remaining cycle count reaches zero.
type Callback func(iarg int)

type entry struct {
	owner any // identity used by Cancel; typically the device pointer
	cb    Callback
	iarg  int
	time  int // cycles remaining relative to the previous entry
	prev  *entry
	next  *entry
}

// Queue is an ordered list of pending callbacks, each scheduled some number
// of cycles in the future relative to its neighbor.
type Queue struct {
	head *entry
	tail *entry
}

// NewQueue returns an empty event queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Add schedules cb to fire after `cycles` cycles have elapsed, carrying
// iarg. If cycles is 0 the callback fires immediately, synchronously,
// before Add returns.
func (q *Queue) Add(owner any, cb Callback, cycles int, iarg int) {
	if cycles <= 0 {
		cb(iarg)
		return
	}
	ev := &entry{owner: owner, cb: cb, time: cycles, iarg: iarg}

	cur := q.head
	if cur == nil {
		q.head = ev
		q.tail = ev
		return
	}
	for cur != nil {
		if ev.time <= cur.time {
			cur.time -= ev.time
			ev.prev = cur.prev
			ev.next = cur
			cur.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				q.head = ev
			}
			return
		}
		ev.time -= cur.time
		cur = cur.next
	}
	ev.prev = q.tail
	q.tail.next = ev
	q.tail = ev
}

// Cancel removes the first pending entry matching owner and iarg, if any.
func (q *Queue) Cancel(owner any, iarg int) {
	cur := q.head
	for cur != nil {
		if cur.owner == owner && cur.iarg == iarg {
			if cur.next != nil {
				cur.next.time += cur.time
				cur.next.prev = cur.prev
			} else {
				q.tail = cur.prev
			}
			if cur.prev != nil {
				cur.prev.next = cur.next
			} else {
				q.head = cur.next
			}
			return
		}
		cur = cur.next
	}
}

// Pending reports whether any callback is scheduled.
func (q *Queue) Pending() bool {
	return q.head != nil
}

// Advance moves the queue forward by t cycles, firing (and removing) every
// entry whose remaining time reaches zero or below, in order.
func (q *Queue) Advance(t int) {
	cur := q.head
	if cur == nil {
		return
	}
	cur.time -= t
	for cur != nil && cur.time <= 0 {
		cur.cb(cur.iarg)
		q.head = cur.next
		if q.head != nil {
			q.head.prev = nil
			q.head.time += cur.time // carry the cycles elapsed past cur's deadline
		} else {
			q.tail = nil
		}
		cur = q.head
	}
}
