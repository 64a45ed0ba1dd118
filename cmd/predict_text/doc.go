// Package main provides a demo program that classifies a text snippet with a hosted
// AutoML Natural Language model and prints the class name and score of every
// annotation.
package main
