package queue

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/world-in-progress/surfpool/core/logger"
	"github.com/world-in-progress/surfpool/core/rescue"
	"github.com/world-in-progress/surfpool/core/threading"
)

type (
	// Queue is the structure for task queue.
	Queue[T any] struct {
		name                 string
		producerFactory      ProducerFactory[T]
		producerRoutineGroup *threading.RoutineGroup
		consumerFactory      ConsumeFactory[T]
		consumerRoutineGroup *threading.RoutineGroup
		producerCount        int
		consumerCount        int
		consumed             atomic.Int64
		failed               atomic.Int64
		channel              chan T
		quit                 chan struct{}
		quitOnce             sync.Once
		eventLock            sync.Mutex
		eventChannels        []chan any
	}
)

// NewQueue returns a new queue.
func NewQueue[T any](name string, producerFactory ProducerFactory[T], consumerFactory ConsumeFactory[T]) *Queue[T] {

	q := &Queue[T]{
		producerFactory:      producerFactory,
		producerRoutineGroup: threading.NewRoutineGroup(),
		consumerFactory:      consumerFactory,
		consumerRoutineGroup: threading.NewRoutineGroup(),
		producerCount:        runtime.NumCPU(),
		consumerCount:        runtime.NumCPU() << 1,
		channel:              make(chan T),
		quit:                 make(chan struct{}),
	}

	q.SetName(name)
	return q
}

// SetName sets the name of task queue.
func (q *Queue[T]) SetName(name string) {
	q.name = name
}

// SetNumProducer sets the numer of producers.
func (q *Queue[T]) SetNumProducer(count int) {
	q.producerCount = count
}

// SetNumConsumer sets the numer of consumers.
func (q *Queue[T]) SetNumConsumer(count int) {
	q.consumerCount = count
}

// Broadcast broadcasts the message to all event channels.
func (q *Queue[T]) Broadcast(message any) {
	go func() {
		defer q.eventLock.Unlock()

		q.eventLock.Lock()
		for _, channel := range q.eventChannels {
			select {
			case channel <- message:
			case <-q.quit:
				return
			}
		}
	}()
}

// Start starts the task queue and blocks until every producer is exhausted
// (or Stop is called) and consumers have drained what was produced.
func (q *Queue[T]) Start() {
	q.startProducers(q.producerCount)
	q.startConsumers(q.consumerCount)

	q.producerRoutineGroup.Wait()
	close(q.channel)
	q.consumerRoutineGroup.Wait()
}

// Stop stops the task queue.
func (q *Queue[T]) Stop() {
	q.quitOnce.Do(func() {
		close(q.quit)
	})
}

// Consumed returns how many messages were consumed, and how many of those failed.
func (q *Queue[T]) Consumed() (total int64, failed int64) {
	return q.consumed.Load(), q.failed.Load()
}

func (q *Queue[T]) produceOne(producer Producer[T]) (v T, ok bool) {
	defer rescue.Recover()

	return producer.Produce()
}

func (q *Queue[T]) produce() {
	producer, err := q.producerFactory()
	if err != nil {
		logger.Error("queue %s: error occurred while creating producer: %v", q.name, err)
		return
	}

	for {
		select {
		case <-q.quit:
			logger.Debug("queue %s: quitting producer", q.name)
			return
		default:
		}

		v, ok := q.produceOne(producer)
		if !ok {
			return
		}

		select {
		case q.channel <- v:
		case <-q.quit:
			return
		}
	}
}

func (q *Queue[T]) startProducers(number int) {
	for range number {
		q.producerRoutineGroup.RunSafe(func() {
			q.produce()
		})
	}
}

func (q *Queue[T]) consumeOne(consumer Consumer[T], task T) {
	q.consumed.Add(1)
	threading.RunSafe(func() {
		if err := consumer.Consume(task); err != nil {
			q.failed.Add(1)
			logger.Warn("queue %s: error occurred while consuming: %v", q.name, err)
		}
	})
}

func (q *Queue[T]) consume(eventChan chan any) {
	consumer, err := q.consumerFactory()
	if err != nil {
		logger.Error("queue %s: error occurred while creating consumer: %v", q.name, err)
		return
	}

	for {
		select {
		case message, ok := <-q.channel:
			if !ok {
				logger.Debug("queue %s: task channel was closed, quitting consumer", q.name)
				return
			}
			q.consumeOne(consumer, message)
		case event := <-eventChan:
			consumer.OnEvent(event)
		}
	}
}

func (q *Queue[T]) startConsumers(number int) {
	for range number {
		eventChan := make(chan any)
		q.eventLock.Lock()
		q.eventChannels = append(q.eventChannels, eventChan)
		q.eventLock.Unlock()
		q.consumerRoutineGroup.RunSafe(func() {
			q.consume(eventChan)
		})
	}
}
