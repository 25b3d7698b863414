// Package messaging defines interfaces for real-time communication.
package messaging

// Broadcaster defines the interface for managing stream clients and fanning out emitted labels.
type Broadcaster interface {
	AddClient(anonymousID string) chan []byte
	RemoveClient(ch chan []byte, anonymousID string)
	ClientCount() int
	Publish(msg LabelMessage)
}
