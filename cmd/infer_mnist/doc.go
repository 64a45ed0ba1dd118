// Package main provides a demo program for running inference with a saved MNIST digit
// classifier. It classifies an image given by URL or path and can evaluate the model
// on the MNIST test set.
package main
