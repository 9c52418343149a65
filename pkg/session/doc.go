/*
Package session serializes access to conversation checkpoints.

A Manager hands out one mutex per session, reference counted so idle sessions cost
nothing, and can additionally take a distributed lock so replicas sharing a
checkpoint store never run two turns of the same session at once.
*/
package session
