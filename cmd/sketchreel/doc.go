// Command sketchreel renders whiteboard-style explainer videos from YAML
// scene projects.
package main
