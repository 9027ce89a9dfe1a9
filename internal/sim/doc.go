// Package sim is a self-contained stand-in for a robot on a hilly map. It
// serves the elevation, navigation and pose services the search controller
// talks to, so the whole system can run and be tested without hardware.
package sim
