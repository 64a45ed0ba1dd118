// Package trainer provides high-level training orchestration for feedforward networks.
// It builds the training graph with a softmax cross-entropy cost and an Adam solver,
// drives epochs of shuffled batches over a dataset and reports every epoch to its
// listeners.
package trainer
