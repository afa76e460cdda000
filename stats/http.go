package stats

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/omniscale/osmfilter/log"
)

// StartHttpPProf serves the net/http/pprof handlers on bind.
func StartHttpPProf(bind string) {
	go func() {
		log.Println("[error]", http.ListenAndServe(bind, nil))
	}()
}
