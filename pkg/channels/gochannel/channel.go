// Package gochannel keeps progression events inside one process. It backs local development
// and tests, where the API and its event handlers share a binary.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	// Moves never wait on handlers, so a burst of stage changes needs room to queue.
	outputBuffer     = 1000
	testOutputBuffer = 10
)

// CreateChannel returns one in-memory pub/sub as both publisher and subscriber. Events are
// dropped once delivered and publishing never blocks a stage move.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            outputBuffer,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	return pubSub, pubSub, nil
}

// CreateTestChannel returns a pub/sub that keeps events and blocks until each is acked, so a
// test sees a published deadline or stage event before Publish returns.
func CreateTestChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            testOutputBuffer,
			Persistent:                     true,
			BlockPublishUntilSubscriberAck: true,
		},
		logger,
	)

	return pubSub, pubSub, nil
}
