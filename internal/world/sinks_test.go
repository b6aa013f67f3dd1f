package world

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/topdown-sim/internal/entity"
	"github.com/annel0/topdown-sim/internal/eventbus"
	"github.com/annel0/topdown-sim/internal/physics"
	"github.com/annel0/topdown-sim/internal/vec"
)

func TestBusSinkPublishesEnvelope(t *testing.T) {
	bus := eventbus.NewMemoryBus(8)
	defer bus.Close()

	received := make(chan *eventbus.Envelope, 1)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{"enemy-death"}}, func(ctx context.Context, ev *eventbus.Envelope) {
		received <- ev
	})
	require.NoError(t, err)

	sink := NewBusSink(bus)
	sink.Emit(7, entity.EnemyDeath{EnemyID: 1001, KillerID: 1000, Position: vec.Vec2Float{X: 3, Y: 4}})

	select {
	case env := <-received:
		assert.Equal(t, EventSource, env.Source)
		assert.Equal(t, "7", env.CorrelationID, "Номер тика передаётся в CorrelationID")
		assert.Equal(t, eventbus.PriorityNormal, env.Priority)

		var death entity.EnemyDeath
		require.NoError(t, env.Decode(&death))
		assert.Equal(t, uint64(1001), death.EnemyID)
		assert.Equal(t, vec.Vec2Float{X: 3, Y: 4}, death.Position)
	case <-time.After(time.Second):
		t.Fatal("Событие не доставлено")
	}
}

func TestBusSinkWithSimulation(t *testing.T) {
	bus := eventbus.NewMemoryBus(8)
	defer bus.Close()

	received := make(chan *eventbus.Envelope, 4)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{"item-pickup"}}, func(ctx context.Context, ev *eventbus.Envelope) {
		received <- ev
	})
	require.NoError(t, err)

	sim := NewSimulation(physics.DefaultConfig(), WithSeed(1), WithEventSink(NewBusSink(bus)), WithInventory(NewMemoryInventory(2)))
	player, err := sim.AddEntity(entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))
	require.NoError(t, err)
	_, err = sim.AddEntity(entity.NewItem(0, vec.Vec2Float{X: 33}, entity.ItemStack{ItemID: "coin"}))
	require.NoError(t, err)

	require.NoError(t, sim.MovePlayer(player, vec.Vec2Float{X: 1}))
	sim.Update(frame)

	select {
	case env := <-received:
		var pickup entity.ItemPickup
		require.NoError(t, env.Decode(&pickup))
		assert.Equal(t, player, pickup.PlayerID)
		assert.Equal(t, "coin", pickup.Item.ItemID)
		assert.Equal(t, "1", env.CorrelationID)
	case <-time.After(time.Second):
		t.Fatal("Подбор предмета не опубликован")
	}
}

func TestPriorityOf(t *testing.T) {
	assert.Equal(t, eventbus.PriorityLow, priorityOf(entity.Message{}))
	assert.Equal(t, eventbus.PriorityHigh, priorityOf(entity.PlayerDied{}))
	assert.Equal(t, eventbus.PriorityNormal, priorityOf(entity.TriggerActivated{}))
}

func TestMemoryInventory(t *testing.T) {
	inv := NewMemoryInventory(2)

	assert.True(t, inv.AddItem(1, entity.ItemStack{ItemID: "arrow", Quantity: 5, Stackable: true}))
	assert.True(t, inv.AddItem(1, entity.ItemStack{ItemID: "arrow", Quantity: 3, Stackable: true}))
	assert.True(t, inv.AddItem(1, entity.ItemStack{ItemID: "sword"}))
	assert.False(t, inv.AddItem(1, entity.ItemStack{ItemID: "shield"}), "Слоты закончились")
	assert.True(t, inv.AddItem(1, entity.ItemStack{ItemID: "arrow", Stackable: true}), "Стопка не занимает новый слот")

	items := inv.Items(1)
	require.Len(t, items, 2)
	assert.Equal(t, 9, items[0].Quantity)

	assert.True(t, inv.RemoveItem(1, "sword"))
	assert.False(t, inv.HasItem(1, "sword"))
	assert.True(t, inv.RemoveItem(1, "arrow"))
	assert.Equal(t, 8, inv.Items(1)[0].Quantity)
	assert.False(t, inv.RemoveItem(2, "arrow"), "У другого игрока своего инвентаря нет")
}
