package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/bakery"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// HelpMessage lists the supported chat commands.
const HelpMessage = "Bakery bot commands:\n" +
	"made <product> <qty>  log a production batch, e.g. made croissant 12\n" +
	"sold <product> <qty>  log a sale, e.g. sold bread 3\n" +
	"today                 today's reconciliation\n" +
	"help                  this message"

// Bakery is the slice of the bakery service the chat needs.
type Bakery interface {
	FindProduct(ctx context.Context, name string) (models.Product, error)
	RecordProduction(ctx context.Context, lines []bakery.ProductionLine) ([]models.ProductionEvent, error)
	RecordSales(ctx context.Context, recordedBy string, lines []bakery.SaleLine) ([]models.SaleEvent, error)
	Day(ctx context.Context, day models.DayKey) (models.DailySummary, error)
	Today() models.DayKey
}

// Dispatcher executes parsed commands and returns the reply text.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	bakery Bakery
	logger *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(b Bakery, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{bakery: b, logger: logger.Named("svc.commands")}
}

// HandleCommand runs cmd on behalf of sender. User mistakes (bad arguments,
// unknown product, not enough stock) become a reply; only store failures are
// returned as errors.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	var (
		reply string
		err   error
	)
	switch cmd.Type {
	case models.CommandMade:
		reply, err = s.made(ctx, cmd)
	case models.CommandSold:
		reply, err = s.sold(ctx, cmd, sender)
	case models.CommandToday:
		reply, err = s.today(ctx)
	case models.CommandHelp:
		return HelpMessage, nil
	default:
		return "Unknown command.\n" + HelpMessage, nil
	}

	return s.friendly(cmd, reply, err)
}

func (s *Service) made(ctx context.Context, cmd models.Command) (string, error) {
	name, qty, err := parseProductQuantity(cmd.Args)
	if err != nil {
		return "", err
	}
	product, err := s.bakery.FindProduct(ctx, name)
	if err != nil {
		return "", err
	}
	if _, err := s.bakery.RecordProduction(ctx, []bakery.ProductionLine{{ProductID: product.ID, Quantity: qty}}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Logged %d %s made today.", qty, product.Name), nil
}

func (s *Service) sold(ctx context.Context, cmd models.Command, sender string) (string, error) {
	name, qty, err := parseProductQuantity(cmd.Args)
	if err != nil {
		return "", err
	}
	product, err := s.bakery.FindProduct(ctx, name)
	if err != nil {
		return "", err
	}
	if _, err := s.bakery.RecordSales(ctx, sender, []bakery.SaleLine{{ProductID: product.ID, Quantity: qty}}); err != nil {
		return "", err
	}
	total := product.Price.Mul(decimal.NewFromInt(int64(qty)))
	return fmt.Sprintf("Logged %d %s sold (%s).", qty, product.Name, total.StringFixed(2)), nil
}

func (s *Service) today(ctx context.Context) (string, error) {
	summary, err := s.bakery.Day(ctx, s.bakery.Today())
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nRevenue %s, unsold value %s, sold %d of %d made",
		summary.Label,
		summary.TotalRevenue.StringFixed(2),
		summary.TotalUnsoldValue.StringFixed(2),
		summary.TotalItemsSold,
		summary.TotalProduced,
	)
	for _, p := range summary.Products {
		fmt.Fprintf(&b, "\n- %s: %d/%d sold, %d left", p.ProductName, p.Sold, p.Produced, p.Unsold)
	}
	return b.String(), nil
}

func (s *Service) friendly(cmd models.Command, reply string, err error) (string, error) {
	switch {
	case err == nil:
		return reply, nil
	case errors.Is(err, ErrInvalidArguments):
		return fmt.Sprintf("Usage: %s <product> <qty>", cmd.Type), nil
	case errors.Is(err, models.ErrNotFound):
		return "I don't know that product. Check the name and try again.", nil
	case errors.Is(err, models.ErrInsufficientStock):
		return "Not enough stock: " + err.Error(), nil
	case errors.Is(err, models.ErrValidation):
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return fmt.Sprintf("Rejected: %s %s.", verr.Field, verr.Message), nil
		}
		return "Rejected: " + err.Error(), nil
	default:
		return "", err
	}
}

// parseProductQuantity accepts "<product words> <qty>" or "<qty> <product words>".
func parseProductQuantity(args []string) (string, int, error) {
	if len(args) < 2 {
		return "", 0, ErrInvalidArguments
	}

	if qty, err := strconv.Atoi(args[len(args)-1]); err == nil {
		return strings.Join(args[:len(args)-1], " "), qty, positive(qty)
	}
	if qty, err := strconv.Atoi(args[0]); err == nil {
		return strings.Join(args[1:], " "), qty, positive(qty)
	}
	return "", 0, ErrInvalidArguments
}

func positive(qty int) error {
	if qty <= 0 {
		return ErrInvalidArguments
	}
	return nil
}
