package search

import (
	"context"
	"sync"
	"time"
)

// DefaultDelay é a janela de silêncio antes de disparar a busca.
const DefaultDelay = 500 * time.Millisecond

// Func executa a busca para um termo. ctx é cancelado quando um termo mais
// novo dispara.
type Func[T any] func(ctx context.Context, term string) (T, error)

// Result é a resposta da busca mais recente.
type Result[T any] struct {
	Term  string
	Value T
	Err   error
}

// Debouncer agrupa digitações em uma única busca após a janela de silêncio.
// Somente o termo mais recente entrega resultado.
type Debouncer[T any] struct {
	mu     sync.Mutex
	parent context.Context
	delay  time.Duration
	fn     Func[T]
	timer  *time.Timer
	cancel context.CancelFunc
	seq    uint64
	closed bool
	out    chan Result[T]
}

// New cria o debouncer. delay <= 0 usa DefaultDelay.
func New[T any](parent context.Context, delay time.Duration, fn Func[T]) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{
		parent: parent,
		delay:  delay,
		fn:     fn,
		out:    make(chan Result[T], 1),
	}
}

// Results entrega as respostas na ordem em que os termos foram digitados.
func (d *Debouncer[T]) Results() <-chan Result[T] {
	return d.out
}

// Input registra um novo termo, reinicia a janela e cancela a busca em voo.
func (d *Debouncer[T]) Input(term string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq, term) })
}

func (d *Debouncer[T]) fire(seq uint64, term string) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.parent)
	d.cancel = cancel
	d.mu.Unlock()

	value, err := d.fn(ctx, term)

	d.mu.Lock()
	defer d.mu.Unlock()
	cancel()
	if d.closed || seq != d.seq {
		return
	}
	d.cancel = nil
	d.deliver(Result[T]{Term: term, Value: value, Err: err})
}

// deliver substitui um resultado ainda não lido. Chamado com mu travado.
func (d *Debouncer[T]) deliver(r Result[T]) {
	select {
	case <-d.out:
	default:
	}
	d.out <- r
}

// Close descarta a janela pendente e cancela a busca em voo.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}
	close(d.out)
}
