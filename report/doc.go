/*
Package report renders measured memory mountains: as console tables, JSON
documents, PNG plots, and Prometheus textfile metrics.
*/
package report
