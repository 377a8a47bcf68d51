// Package engine drives the session cycle: the director speaks, the
// utterance is classified, responders are ordered, and each responder acts
// in turn, with the director reacting to inline dice calls. The engine owns
// all registry recency mutation and loops until a stop condition.
package engine
