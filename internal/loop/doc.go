// Package loop drives a run: it hands the task to the worker agent one
// iteration at a time, routes completion claims to the judge, feeds
// rejections back as guidance, and stops on approval, exhaustion or
// failure. Whatever happens, the run's results are synced out of the
// sandbox before the loop returns.
package loop
