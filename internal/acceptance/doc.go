// Package acceptance drives the HTTP API end to end against a throwaway
// database with the scenarios under features/.
package acceptance
