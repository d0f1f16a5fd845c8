// Package queue holds the marker queue feeding the animation worker.
// It is an unbounded FIFO: producers never block, consumers block while the
// queue is empty.
package queue
