// Package main provides a demo program for training a handwritten digit classifier on
// the MNIST dataset. It trains a multilayer perceptron for a fixed number of epochs,
// saves it, reloads it and classifies one image downloaded from a URL.
package main
