package tool

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Demo card number issued by the mock backend. The payment system derives
// from its first digit.
const mockCardNumber = "5105-1051-0510-5100"

// AccountService is a mock account-opening backend. Applications are kept in
// memory so tests and operators can inspect what the agent actually opened;
// both tools below are expected to be registered as protected.
type AccountService struct {
	mu       sync.Mutex
	logger   *slog.Logger
	deposits []DepositApplication
	cards    []CardApplication
	now      func() time.Time
}

type DepositApplication struct {
	Contract   string
	ClientName string
	Amount     float64
	Rate       float64
	TermMonths int
}

type CardApplication struct {
	CardType   string
	HolderName string
}

func NewAccountService(logger *slog.Logger) *AccountService {
	return &AccountService{logger: logger, now: time.Now}
}

// Deposits returns a copy of the recorded deposit applications.
func (s *AccountService) Deposits() []DepositApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DepositApplication, len(s.deposits))
	copy(out, s.deposits)
	return out
}

// Cards returns a copy of the recorded card applications.
func (s *AccountService) Cards() []CardApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CardApplication, len(s.cards))
	copy(out, s.cards)
	return out
}

// OpenDepositTool opens a deposit account for a client. Protected: the agent
// must obtain human approval before executing it.
type OpenDepositTool struct {
	service *AccountService
}

func NewOpenDepositTool(service *AccountService) *OpenDepositTool {
	return &OpenDepositTool{service: service}
}

func (t *OpenDepositTool) Name() string { return "open_deposit" }
func (t *OpenDepositTool) Description() string {
	return "Открытие нового вклада для клиента. Возвращает номер договора и детали вклада."
}
func (t *OpenDepositTool) Parameters() map[string]any {
	return ToolParameters(
		map[string]Param{
			"client_name":    {Type: "string", Description: "ФИО клиента полностью"},
			"amount":         {Type: "number", Description: "Сумма вклада в рублях, не менее 1000"},
			"rate":           {Type: "number", Description: "Фиксированная ставка по вкладу, процентов годовых"},
			"term_months":    {Type: "number", Description: "Срок вклада в месяцах, от 1 до 120"},
			"capitalization": {Type: "boolean", Description: "Капитализировать проценты ежемесячно"},
		},
		[]string{"client_name", "amount", "rate", "term_months"},
	)
}

func (t *OpenDepositTool) Execute(_ context.Context, args map[string]any) (string, error) {
	clientName := strings.TrimSpace(ArgsString(args, "client_name"))
	if clientName == "" {
		return "", fmt.Errorf("missing argument: client_name")
	}
	amount, ok := ArgsFloat(args, "amount")
	if !ok || amount < 1000 {
		return "", fmt.Errorf("invalid argument: amount must be at least 1000")
	}
	rate, ok := ArgsFloat(args, "rate")
	if !ok || rate <= 0 || rate > 100 {
		return "", fmt.Errorf("invalid argument: rate must be in (0, 100]")
	}
	termFloat, ok := ArgsFloat(args, "term_months")
	if !ok || termFloat < 1 || termFloat > 120 {
		return "", fmt.Errorf("invalid argument: term_months must be in [1, 120]")
	}
	termMonths := int(termFloat)
	capitalize := ArgsBool(args, "capitalization", true)

	s := t.service
	s.mu.Lock()
	now := s.now()
	contract := fmt.Sprintf("DEP-%s-%06d", now.Format("20060102"), rand.Intn(900000))
	s.deposits = append(s.deposits, DepositApplication{
		Contract:   contract,
		ClientName: clientName,
		Amount:     amount,
		Rate:       rate,
		TermMonths: termMonths,
	})
	s.mu.Unlock()

	var income, total float64
	if capitalize {
		income, total = compoundInterest(amount, rate, termMonths, 1)
	} else {
		income, total = simpleInterest(amount, rate, termMonths)
	}
	endDate := now.AddDate(0, termMonths, 0).Format("02.01.2006")
	capLabel := "нет"
	if capitalize {
		capLabel = "ежемесячно"
	}

	s.logger.Info("deposit opened", "contract", contract, "client", clientName, "amount", amount)

	return fmt.Sprintf(
		"✅ **Вклад успешно открыт!**\n\n"+
			"📋 **Детали вклада:**\n"+
			"   Номер договора: %s\n"+
			"   Клиент: %s\n"+
			"   Сумма: %.0f₽\n"+
			"   Ставка: %.4g%% годовых\n"+
			"   Срок: %d мес.\n"+
			"   Капитализация: %s\n"+
			"   Дата окончания: %s\n"+
			"   Ожидаемый доход: %.2f₽\n"+
			"   Итоговая сумма: %.2f₽\n\n"+
			"💰 Вклад активен и начал начисление процентов.\n",
		contract, clientName, amount, rate, termMonths, capLabel, endDate, income, total), nil
}

// OpenCardTool issues a debit or credit card. Protected like OpenDepositTool.
type OpenCardTool struct {
	service *AccountService
}

func NewOpenCardTool(service *AccountService) *OpenCardTool {
	return &OpenCardTool{service: service}
}

func (t *OpenCardTool) Name() string { return "open_credit_card" }
func (t *OpenCardTool) Description() string {
	return "Открытие новой дебетовой или кредитной карты для клиента. Возвращает данные карты без CVV кода."
}
func (t *OpenCardTool) Parameters() map[string]any {
	return ToolParameters(
		map[string]Param{
			"card_type":   {Type: "string", Description: "Тип карты: debit (дебетовая) или credit (кредитная)"},
			"client_name": {Type: "string", Description: "Имя владельца карты латиницей, как будет напечатано на карте"},
		},
		[]string{"card_type", "client_name"},
	)
}

func (t *OpenCardTool) Execute(_ context.Context, args map[string]any) (string, error) {
	cardType := ArgsString(args, "card_type")
	if cardType != "debit" && cardType != "credit" {
		return "", fmt.Errorf("invalid argument: card_type must be debit or credit")
	}
	clientName := strings.TrimSpace(ArgsString(args, "client_name"))
	if clientName == "" {
		return "", fmt.Errorf("missing argument: client_name")
	}
	holder := strings.ToUpper(clientName)

	s := t.service
	s.mu.Lock()
	now := s.now()
	s.cards = append(s.cards, CardApplication{CardType: cardType, HolderName: holder})
	s.mu.Unlock()

	var paymentSystem string
	switch mockCardNumber[0] {
	case '4':
		paymentSystem = "Visa"
	case '5':
		paymentSystem = "Mastercard"
	case '2':
		paymentSystem = "МИР"
	default:
		paymentSystem = "Unknown"
	}
	expiration := now.AddDate(3, 0, 0).Format("01/06")

	cardTypeRu := "Кредитная"
	if cardType == "debit" {
		cardTypeRu = "Дебетовая"
	}

	s.logger.Info("card opened", "type", cardType, "holder", holder)

	return fmt.Sprintf(
		"✅ **Карта успешно открыта!**\n\n"+
			"📋 **Детали карты:**\n"+
			"   Тип: %s карта\n"+
			"   Платежная система: %s\n"+
			"   Номер карты: %s\n"+
			"   Срок действия: %s\n"+
			"   Владелец: %s\n"+
			"   Статус: Активна\n\n"+
			"💳 Карта готова к использованию.\n"+
			"🔐 CVV код будет отправлен на номер телефона клиента отдельным СМС-сообщением.\n",
		cardTypeRu, paymentSystem, mockCardNumber, expiration, holder), nil
}
